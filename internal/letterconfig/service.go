package letterconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
	"gorm.io/gorm"
)

// UpdateInput patches the letter configuration; nil means unchanged.
type UpdateInput struct {
	MinistryName    *string
	InstitutionName *string
	Address         *string
	ContactInfo     *string
	LogoURL         *string

	HeaderMinistryFontSize    *int
	HeaderInstitutionFontSize *int
	HeaderAddressFontSize     *int
	LogoSize                  *int

	LoanLetterNumberFormat   *string
	ReturnLetterNumberFormat *string

	BodyHeader  *string
	BodyOpening *string
	BodyClosing *string

	ReturnBodyHeader  *string
	ReturnBodyOpening *string
	ReturnBodyClosing *string
}

// Service exposes the letter configuration to controllers and the document
// renderer. Reads fall back to the built-in defaults until an admin saves one.
type Service interface {
	Get(ctx context.Context) (*models.LetterConfig, error)
	Update(ctx context.Context, actor types.Actor, input UpdateInput) (*models.LetterConfig, error)
	Reset(ctx context.Context, actor types.Actor) (*models.LetterConfig, error)
}

type service struct {
	repo Repository
}

// NewService builds the letter config service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("letter config repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context) (*models.LetterConfig, error) {
	config, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			defaults := Defaults()
			return &defaults, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load letter config")
	}
	return config, nil
}

func (s *service) Update(ctx context.Context, actor types.Actor, input UpdateInput) (*models.LetterConfig, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	config, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) error {
		if src == nil {
			return nil
		}
		if strings.TrimSpace(*src) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "letter config fields cannot be blank")
		}
		*dst = *src
		return nil
	}

	for _, pair := range []struct {
		dst *string
		src *string
	}{
		{&config.MinistryName, input.MinistryName},
		{&config.InstitutionName, input.InstitutionName},
		{&config.Address, input.Address},
		{&config.ContactInfo, input.ContactInfo},
		{&config.LoanLetterNumberFormat, input.LoanLetterNumberFormat},
		{&config.ReturnLetterNumberFormat, input.ReturnLetterNumberFormat},
		{&config.BodyHeader, input.BodyHeader},
		{&config.BodyOpening, input.BodyOpening},
		{&config.BodyClosing, input.BodyClosing},
		{&config.ReturnBodyHeader, input.ReturnBodyHeader},
		{&config.ReturnBodyOpening, input.ReturnBodyOpening},
		{&config.ReturnBodyClosing, input.ReturnBodyClosing},
	} {
		if err := applyString(pair.dst, pair.src); err != nil {
			return nil, err
		}
	}

	// The logo may be cleared.
	if input.LogoURL != nil {
		config.LogoURL = *input.LogoURL
	}

	for _, pair := range []struct {
		dst *int
		src *int
	}{
		{&config.HeaderMinistryFontSize, input.HeaderMinistryFontSize},
		{&config.HeaderInstitutionFontSize, input.HeaderInstitutionFontSize},
		{&config.HeaderAddressFontSize, input.HeaderAddressFontSize},
		{&config.LogoSize, input.LogoSize},
	} {
		if pair.src == nil {
			continue
		}
		if *pair.src <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sizes must be positive")
		}
		*pair.dst = *pair.src
	}

	if err := s.repo.Save(ctx, config); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save letter config")
	}
	return config, nil
}

func (s *service) Reset(ctx context.Context, actor types.Actor) (*models.LetterConfig, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	defaults := Defaults()
	if err := s.repo.Save(ctx, &defaults); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset letter config")
	}
	return &defaults, nil
}
