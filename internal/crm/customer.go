package crm

import (
	"context"
	"fmt"
)

// Identity is the contact data a customer record is matched and updated
// with.
type Identity struct {
	Name   string
	Email  string
	Phone  string
	Street string
	Zip    string
	City   string
}

// FindOrCreateCustomer returns the res.partner matching identity.Email,
// refreshing its phone and address, or creates a new one. Calling it twice
// with the same email yields the same id.
func (s *Service) FindOrCreateCustomer(ctx context.Context, identity Identity) (int64, error) {
	existing, err := s.search(ctx, "res.partner", domain([3]any{"email", "=", identity.Email}))
	if err != nil {
		return 0, fmt.Errorf("failed to look up customer: %w", err)
	}

	if len(existing) > 0 {
		_, err := s.exec.Execute(ctx, "res.partner", "write", []any{existing, map[string]any{
			"phone":  identity.Phone,
			"street": identity.Street,
			"zip":    identity.Zip,
			"city":   identity.City,
		}}, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to update customer %d: %w", existing[0], err)
		}
		return existing[0], nil
	}

	id, err := s.create(ctx, "res.partner", map[string]any{
		"name":       identity.Name,
		"email":      identity.Email,
		"phone":      identity.Phone,
		"street":     identity.Street,
		"zip":        identity.Zip,
		"city":       identity.City,
		"country_id": s.cfg.CountryID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create customer: %w", err)
	}
	return id, nil
}

// findCustomerByEmail returns the first partner with email or ErrNotFound.
func (s *Service) findCustomerByEmail(ctx context.Context, email string) (int64, error) {
	return s.searchFirst(ctx, "res.partner", domain([3]any{"email", "=", email}))
}
