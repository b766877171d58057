package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/security"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	minPasswordLength  = 8
	tempPasswordLength = 12
)

// Service manages user accounts. Authentication lives in the auth package;
// this service owns the records themselves.
type Service interface {
	CreateUser(ctx context.Context, actor types.Actor, input CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, actor types.Actor, id string, input UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, actor types.Actor, id string) error
	GetUser(ctx context.Context, actor types.Actor, id string) (*models.User, error)
	ListUsers(ctx context.Context, actor types.Actor, filter ListFilter) ([]models.User, error)
	ImportCSV(ctx context.Context, actor types.Actor, data []byte) (*ImportResult, error)
}

type service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the user account service.
func NewService(repo Repository, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

func (s *service) CreateUser(ctx context.Context, actor types.Actor, input CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	username := strings.TrimSpace(input.Username)
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if username == "" || name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username, name and email are required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", input.Role))
	}

	password := input.Password
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
	} else if len(password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:               uuid.NewString(),
		Username:         username,
		Name:             name,
		Role:             input.Role,
		IdentifierNumber: strings.TrimSpace(input.IdentifierNumber),
		Email:            email,
		PasswordHash:     hash,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	ctx = s.logg.WithUserID(ctx, user.ID)
	s.logg.Info(ctx, "user created")
	return user, nil
}

func (s *service) UpdateUser(ctx context.Context, actor types.Actor, id string, input UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		// Only admins reassign roles.
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		}
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}
	if input.IdentifierNumber != nil {
		user.IdentifierNumber = strings.TrimSpace(*input.IdentifierNumber)
	}
	if input.Email != nil {
		if strings.TrimSpace(*input.Email) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be blank")
		}
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Save(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
	}
	return user, nil
}

func (s *service) DeleteUser(ctx context.Context, actor types.Actor, id string) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if actor.ID == id {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot delete the account you are signed in with")
	}

	if _, err := s.findUser(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, actor types.Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
	return s.findUser(ctx, id)
}

func (s *service) ListUsers(ctx context.Context, actor types.Actor, filter ListFilter) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return users, nil
}

func (s *service) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	return user, nil
}
