package crm

import (
	"context"
	"fmt"
	"strings"
)

const notGiven = "Nicht angegeben"

// OpportunityInput is everything recorded on a booking opportunity.
type OpportunityInput struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Street           string
	Zip              string
	City             string
	Tier             Tier
	Duration         Duration
	Frequency        Frequency
	Manufacturer     string
	Model            string
	InstallationYear string
	PreferredDate    string
	Message          string
}

func (in OpportunityInput) fullName() string {
	return in.FirstName + " " + in.LastName
}

// description renders the free-text summary the sales team reads.
func (in OpportunityInput) description() string {
	orNotGiven := func(s string) string {
		if s == "" {
			return notGiven
		}
		return s
	}

	var b strings.Builder
	b.WriteString("WARMANO Buchungsanfrage\n\n")
	fmt.Fprintf(&b, "Paket: %s\n", in.Tier.Label())
	fmt.Fprintf(&b, "Vertragslaufzeit: %s\n", in.Duration.Label())
	fmt.Fprintf(&b, "Zahlweise: %s\n\n", in.Frequency.Label())
	b.WriteString("Wärmepumpe:\n")
	fmt.Fprintf(&b, "- Hersteller: %s\n", in.Manufacturer)
	fmt.Fprintf(&b, "- Modell: %s\n", orNotGiven(in.Model))
	fmt.Fprintf(&b, "- Installationsjahr: %s\n", orNotGiven(in.InstallationYear))
	if in.PreferredDate != "" {
		fmt.Fprintf(&b, "\nWunschtermin: %s", in.PreferredDate)
	}
	if in.Message != "" {
		fmt.Fprintf(&b, "\nNachricht: %s", in.Message)
	}
	return strings.TrimSpace(b.String())
}

// CreateOpportunity always creates a new crm.lead of type opportunity. It
// does not look for duplicates.
func (s *Service) CreateOpportunity(ctx context.Context, in OpportunityInput) (int64, error) {
	id, err := s.create(ctx, "crm.lead", map[string]any{
		"name":         fmt.Sprintf("WARMANO %s - %s", in.Tier.Label(), in.fullName()),
		"contact_name": in.fullName(),
		"email_from":   in.Email,
		"phone":        in.Phone,
		"street":       in.Street,
		"zip":          in.Zip,
		"city":         in.City,
		"description":  in.description(),
		"type":         "opportunity",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create opportunity: %w", err)
	}
	return id, nil
}
