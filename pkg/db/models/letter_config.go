package models

import "time"

// LetterConfig is the single, admin-editable template behind printed loan and
// return documents. Exactly one row exists (ID 1).
type LetterConfig struct {
	ID uint `gorm:"column:id;primaryKey"`

	MinistryName    string `gorm:"column:ministry_name;not null"`
	InstitutionName string `gorm:"column:institution_name;not null"`
	Address         string `gorm:"column:address;not null"`
	ContactInfo     string `gorm:"column:contact_info;not null"`
	LogoURL         string `gorm:"column:logo_url"`

	HeaderMinistryFontSize    int `gorm:"column:header_ministry_font_size;not null;default:16"`
	HeaderInstitutionFontSize int `gorm:"column:header_institution_font_size;not null;default:24"`
	HeaderAddressFontSize     int `gorm:"column:header_address_font_size;not null;default:13"`
	LogoSize                  int `gorm:"column:logo_size;not null;default:100"`

	// Numbering formats with [ID], [BLN] (Roman month) and [THN] placeholders.
	LoanLetterNumberFormat   string `gorm:"column:loan_letter_number_format;not null"`
	ReturnLetterNumberFormat string `gorm:"column:return_letter_number_format;not null"`

	BodyHeader  string `gorm:"column:body_header;not null"`
	BodyOpening string `gorm:"column:body_opening;not null"`
	BodyClosing string `gorm:"column:body_closing;not null"`

	ReturnBodyHeader  string `gorm:"column:return_body_header;not null"`
	ReturnBodyOpening string `gorm:"column:return_body_opening;not null"`
	ReturnBodyClosing string `gorm:"column:return_body_closing;not null"`

	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
