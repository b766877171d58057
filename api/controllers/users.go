package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/poltekatipdg/sipbmn-backend/api/middleware"
	"github.com/poltekatipdg/sipbmn-backend/api/responses"
	"github.com/poltekatipdg/sipbmn-backend/api/validators"
	usersvc "github.com/poltekatipdg/sipbmn-backend/internal/users"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
)

const maxImportBytes = 5 << 20

type createUserRequest struct {
	Username         string `json:"username" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Role             string `json:"role" validate:"required"`
	IdentifierNumber string `json:"identifierNumber,omitempty"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password,omitempty"`
}

type updateUserRequest struct {
	Name             *string `json:"name,omitempty"`
	Role             *string `json:"role,omitempty"`
	IdentifierNumber *string `json:"identifierNumber,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	AvatarURL        *string `json:"avatarUrl,omitempty"`
	Password         *string `json:"password,omitempty"`
}

// CreateUser registers a new account on behalf of an admin.
func CreateUser(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseUserRole(strings.TrimSpace(body.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		user, err := svc.CreateUser(r.Context(), actor, usersvc.CreateUserInput{
			Username:         body.Username,
			Name:             body.Name,
			Role:             role,
			IdentifierNumber: body.IdentifierNumber,
			Email:            body.Email,
			Password:         body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, usersvc.NewUserView(*user))
	}
}

// ListUsers returns the account directory.
func ListUsers(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		users, err := svc.ListUsers(r.Context(), actor, usersvc.ListFilter{
			Search: strings.TrimSpace(r.URL.Query().Get("q")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]usersvc.UserView, 0, len(users))
		for _, user := range users {
			views = append(views, usersvc.NewUserView(user))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetUser returns one account; users can read their own, admins any.
func GetUser(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		user, err := svc.GetUser(r.Context(), actor, chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, usersvc.NewUserView(*user))
	}
}

// UpdateUser patches an account.
func UpdateUser(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := usersvc.UpdateUserInput{
			Name:             body.Name,
			IdentifierNumber: body.IdentifierNumber,
			Email:            body.Email,
			AvatarURL:        body.AvatarURL,
			Password:         body.Password,
		}
		if body.Role != nil {
			role, err := enums.ParseUserRole(strings.TrimSpace(*body.Role))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			input.Role = &role
		}

		actor := middleware.ActorFromContext(r.Context())
		user, err := svc.UpdateUser(r.Context(), actor, chi.URLParam(r, "userId"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, usersvc.NewUserView(*user))
	}
}

// DeleteUser removes an account.
func DeleteUser(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.DeleteUser(r.Context(), actor, chi.URLParam(r, "userId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ImportUsers bulk-creates accounts from an uploaded CSV. Accepts either a
// multipart "file" field or a raw CSV body.
func ImportUsers(svc usersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		data, err := readImportPayload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		result, err := svc.ImportCSV(r.Context(), actor, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func readImportPayload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart payload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "csv file field required")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read csv file")
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv payload is empty")
	}
	return data, nil
}
