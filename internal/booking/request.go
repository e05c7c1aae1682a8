package booking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Daytona2026/Warmano-webseite/internal/crm"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Request is a booking as submitted by the web form.
type Request struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Street           string `json:"street"`
	ZipCode          string `json:"zipCode"`
	City             string `json:"city"`
	Package          string `json:"package"`
	ContractDuration string `json:"contractDuration"`
	PaymentFrequency string `json:"paymentFrequency"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model,omitempty"`
	InstallationYear string `json:"installationYear,omitempty"`
	PreferredDate    string `json:"preferredDate,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Problem classifies a ValidationError.
type Problem int

const (
	ProblemMissing Problem = iota
	ProblemBadEmail
	ProblemBadChoice
)

// ValidationError reports the first invalid field of a Request. Message is
// the text shown to the customer.
type ValidationError struct {
	Field   string
	Problem Problem
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validated is a Request that passed validation, with its choices parsed.
type Validated struct {
	Request
	Tier      crm.Tier
	Duration  crm.Duration
	Frequency crm.Frequency
}

// Validate checks required fields, the email format and the package
// choices. Missing duration and frequency default to one year, yearly.
func (r Request) Validate() (Validated, error) {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"email", r.Email},
		{"phone", r.Phone},
		{"street", r.Street},
		{"zipCode", r.ZipCode},
		{"city", r.City},
		{"package", r.Package},
		{"manufacturer", r.Manufacturer},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Validated{}, &ValidationError{
				Field:   f.name,
				Problem: ProblemMissing,
				Message: fmt.Sprintf("Feld %q ist erforderlich", f.name),
			}
		}
	}

	if !emailPattern.MatchString(r.Email) {
		return Validated{}, &ValidationError{Field: "email", Problem: ProblemBadEmail, Message: "Ungültige E-Mail-Adresse"}
	}

	tier, err := crm.ParseTier(r.Package)
	if err != nil {
		return Validated{}, &ValidationError{Field: "package", Problem: ProblemBadChoice, Message: "Ungültiges Paket"}
	}
	duration, err := crm.ParseDuration(r.ContractDuration)
	if err != nil {
		return Validated{}, &ValidationError{Field: "contractDuration", Problem: ProblemBadChoice, Message: "Ungültige Vertragslaufzeit"}
	}
	frequency, err := crm.ParseFrequency(r.PaymentFrequency)
	if err != nil {
		return Validated{}, &ValidationError{Field: "paymentFrequency", Problem: ProblemBadChoice, Message: "Ungültige Zahlweise"}
	}

	return Validated{Request: r, Tier: tier, Duration: duration, Frequency: frequency}, nil
}

func (v Validated) fullName() string {
	return v.FirstName + " " + v.LastName
}

func (v Validated) identity() crm.Identity {
	return crm.Identity{
		Name:   v.fullName(),
		Email:  v.Email,
		Phone:  v.Phone,
		Street: v.Street,
		Zip:    v.ZipCode,
		City:   v.City,
	}
}

func (v Validated) opportunity() crm.OpportunityInput {
	return crm.OpportunityInput{
		FirstName:        v.FirstName,
		LastName:         v.LastName,
		Email:            v.Email,
		Phone:            v.Phone,
		Street:           v.Street,
		Zip:              v.ZipCode,
		City:             v.City,
		Tier:             v.Tier,
		Duration:         v.Duration,
		Frequency:        v.Frequency,
		Manufacturer:     v.Manufacturer,
		Model:            v.Model,
		InstallationYear: v.InstallationYear,
		PreferredDate:    v.PreferredDate,
		Message:          v.Message,
	}
}
