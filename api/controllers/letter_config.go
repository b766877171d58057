package controllers

import (
	"net/http"

	"github.com/poltekatipdg/sipbmn-backend/api/middleware"
	"github.com/poltekatipdg/sipbmn-backend/api/responses"
	"github.com/poltekatipdg/sipbmn-backend/api/validators"
	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
)

type updateLetterConfigRequest struct {
	MinistryName    *string `json:"ministryName,omitempty"`
	InstitutionName *string `json:"institutionName,omitempty"`
	Address         *string `json:"address,omitempty"`
	ContactInfo     *string `json:"contactInfo,omitempty"`
	LogoURL         *string `json:"logoUrl,omitempty"`

	HeaderMinistryFontSize    *int `json:"headerMinistryFontSize,omitempty"`
	HeaderInstitutionFontSize *int `json:"headerInstitutionFontSize,omitempty"`
	HeaderAddressFontSize     *int `json:"headerAddressFontSize,omitempty"`
	LogoSize                  *int `json:"logoSize,omitempty"`

	LoanLetterNumberFormat   *string `json:"loanLetterNumberFormat,omitempty"`
	ReturnLetterNumberFormat *string `json:"returnLetterNumberFormat,omitempty"`

	BodyHeader  *string `json:"bodyHeader,omitempty"`
	BodyOpening *string `json:"bodyOpening,omitempty"`
	BodyClosing *string `json:"bodyClosing,omitempty"`

	ReturnBodyHeader  *string `json:"returnBodyHeader,omitempty"`
	ReturnBodyOpening *string `json:"returnBodyOpening,omitempty"`
	ReturnBodyClosing *string `json:"returnBodyClosing,omitempty"`
}

// GetLetterConfig returns the current letterhead settings.
func GetLetterConfig(svc letterconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "letter config service unavailable"))
			return
		}

		config, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, config)
	}
}

// UpdateLetterConfig patches the letterhead settings.
func UpdateLetterConfig(svc letterconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "letter config service unavailable"))
			return
		}

		var body updateLetterConfigRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		config, err := svc.Update(r.Context(), actor, letterconfig.UpdateInput{
			MinistryName:              body.MinistryName,
			InstitutionName:           body.InstitutionName,
			Address:                   body.Address,
			ContactInfo:               body.ContactInfo,
			LogoURL:                   body.LogoURL,
			HeaderMinistryFontSize:    body.HeaderMinistryFontSize,
			HeaderInstitutionFontSize: body.HeaderInstitutionFontSize,
			HeaderAddressFontSize:     body.HeaderAddressFontSize,
			LogoSize:                  body.LogoSize,
			LoanLetterNumberFormat:    body.LoanLetterNumberFormat,
			ReturnLetterNumberFormat:  body.ReturnLetterNumberFormat,
			BodyHeader:                body.BodyHeader,
			BodyOpening:               body.BodyOpening,
			BodyClosing:               body.BodyClosing,
			ReturnBodyHeader:          body.ReturnBodyHeader,
			ReturnBodyOpening:         body.ReturnBodyOpening,
			ReturnBodyClosing:         body.ReturnBodyClosing,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, config)
	}
}

// ResetLetterConfig restores the built-in letterhead defaults.
func ResetLetterConfig(svc letterconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "letter config service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		config, err := svc.Reset(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, config)
	}
}
