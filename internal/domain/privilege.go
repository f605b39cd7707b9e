package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxNameLength is the longest name accepted for card types and privileges.
	MaxNameLength = 50

	// MaxDescriptionLength is the longest trimmed description accepted.
	MaxDescriptionLength = 255
)

// Privilege is an eligibility category (for example a senior citizen
// concession) that a card type can require at activation.
type Privilege struct {
	ID                          uuid.UUID `json:"id"`
	Name                        string    `json:"name"`
	Description                 string    `json:"description,omitempty"`
	IdentificationNumberPattern string    `json:"identification_number_pattern,omitempty"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// HasPattern reports whether identification numbers for this privilege are
// checked against a pattern.
func (p *Privilege) HasPattern() bool {
	return strings.TrimSpace(p.IdentificationNumberPattern) != ""
}

// MatchIdentificationNumber reports whether number satisfies the privilege's
// identification number pattern. A privilege without a pattern accepts any
// number. An uncompilable stored pattern never matches.
func (p *Privilege) MatchIdentificationNumber(number string) bool {
	if !p.HasPattern() {
		return true
	}
	re, err := regexp.Compile(strings.TrimSpace(p.IdentificationNumberPattern))
	if err != nil {
		return false
	}
	return re.MatchString(number)
}

// PrivilegeModel is the administrative input and output shape of a privilege.
// A nil ID asks for a new privilege to be created.
type PrivilegeModel struct {
	ID                          uuid.UUID `json:"id"`
	Name                        string    `json:"name"`
	Description                 string    `json:"description,omitempty"`
	IdentificationNumberPattern string    `json:"identification_number_pattern,omitempty"`
}

// Validate checks the model's fields in a fixed order and returns a
// *ValidationError for the first rule violated.
func (m *PrivilegeModel) Validate() error {
	if err := validateName(m.Name); err != nil {
		return err
	}
	if err := validateDescription(m.Description); err != nil {
		return err
	}
	if pattern := strings.TrimSpace(m.IdentificationNumberPattern); pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return NewValidationError("IdentificationNumberPattern",
				"identification number pattern should be a valid regular expression", err)
		}
	}
	return nil
}

// ApplyTo copies the model's editable fields onto p.
func (m *PrivilegeModel) ApplyTo(p *Privilege, now time.Time) {
	p.Name = m.Name
	p.Description = m.Description
	p.IdentificationNumberPattern = m.IdentificationNumberPattern
	p.UpdatedAt = now
}

// NewPrivilege creates a privilege from a validated model with a fresh ID.
func NewPrivilege(m PrivilegeModel, now time.Time) (*Privilege, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p := &Privilege{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	m.ApplyTo(p, now)
	return p, nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return NewValidationError("Name", "name should not be empty or whitespace", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return NewValidationError("Name", "name should not exceed 50 characters", ErrValidation)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxDescriptionLength {
		return NewValidationError("Description", "description should not exceed 255 characters", ErrValidation)
	}
	return nil
}
