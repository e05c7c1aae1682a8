package crm

import (
	"context"
	"errors"
	"fmt"
)

// ReferralInput describes a person referred by an existing customer.
type ReferralInput struct {
	ReferrerEmail string
	Name          string
	Email         string
	Phone         string
}

// ReferralLead is the lead created for a referral.
type ReferralLead struct {
	LeadID int64 `json:"leadId"`
	// ReferrerID is zero when the referrer's email is not a known customer.
	ReferrerID int64 `json:"referrerId,omitempty"`
}

// ReferralStats summarises a customer's referrals.
type ReferralStats struct {
	Total      int64  `json:"totalReferrals"`
	Successful int64  `json:"successfulReferrals"`
	Pending    int64  `json:"pendingReferrals"`
	Code       string `json:"referralCode"`
}

// ReferralCode derives the public referral code from a customer id.
func ReferralCode(customerID int64) string {
	return fmt.Sprintf("WARMANO-%05d", customerID)
}

// CreateReferralLead records a referred person as a lead. The referrer's
// email goes into the description, which is what GetReferralStats counts.
func (s *Service) CreateReferralLead(ctx context.Context, in ReferralInput) (ReferralLead, error) {
	referrerID, err := s.findCustomerByEmail(ctx, in.ReferrerEmail)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ReferralLead{}, fmt.Errorf("failed to look up referrer: %w", err)
	}

	vals := map[string]any{
		"name":         "Empfehlung: " + in.Name,
		"contact_name": in.Name,
		"email_from":   in.Email,
		"phone":        in.Phone,
		"description":  "Empfohlen von: " + in.ReferrerEmail + "\n\nDieser Lead wurde über das Empfehlungsprogramm erstellt.",
		"source_id":    s.cfg.ReferralSourceID,
	}
	if referrerID > 0 {
		vals["referred"] = referrerID
	}

	leadID, err := s.create(ctx, "crm.lead", vals)
	if err != nil {
		return ReferralLead{}, fmt.Errorf("failed to create referral lead: %w", err)
	}
	return ReferralLead{LeadID: leadID, ReferrerID: referrerID}, nil
}

// GetReferralStats counts leads whose description mentions email. This is a
// substring match, so an address that is contained in another one counts
// that one's referrals too.
func (s *Service) GetReferralStats(ctx context.Context, email string) (ReferralStats, error) {
	partnerID, err := s.findCustomerByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return ReferralStats{}, nil
	}
	if err != nil {
		return ReferralStats{}, fmt.Errorf("failed to look up customer: %w", err)
	}

	total, err := s.count(ctx, "crm.lead", domain([3]any{"description", "ilike", email}))
	if err != nil {
		return ReferralStats{}, fmt.Errorf("failed to count referrals: %w", err)
	}
	won, err := s.count(ctx, "crm.lead", domain(
		[3]any{"description", "ilike", email},
		[3]any{"stage_id.is_won", "=", true},
	))
	if err != nil {
		return ReferralStats{}, fmt.Errorf("failed to count won referrals: %w", err)
	}

	return ReferralStats{
		Total:      total,
		Successful: won,
		Pending:    total - won,
		Code:       ReferralCode(partnerID),
	}, nil
}

func (s *Service) count(ctx context.Context, model string, dom []any) (int64, error) {
	v, err := s.exec.Execute(ctx, model, "search_count", []any{dom}, nil)
	if err != nil {
		return 0, err
	}
	n, _ := v.Int()
	return n, nil
}
