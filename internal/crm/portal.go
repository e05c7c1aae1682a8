package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PortalAccount is the result of provisioning portal access.
type PortalAccount struct {
	UserID int64
	// Existing is true when the customer already had a user.
	Existing bool
	URL      string
	// GroupFallback is true when the configured portal group id was used
	// because the lookup failed.
	GroupFallback bool
}

// ProvisionPortalAccount gives the customer a portal login. An existing user
// only gets a new password-reset mail. A new user is created and moved into
// the portal group; group assignment and the reset mail are best effort.
func (s *Service) ProvisionPortalAccount(ctx context.Context, customerID int64) (PortalAccount, error) {
	partners, err := s.read(ctx, "res.partner", []int64{customerID}, "name", "email")
	if err != nil {
		return PortalAccount{}, fmt.Errorf("failed to read customer %d: %w", customerID, err)
	}
	if len(partners) == 0 {
		return PortalAccount{}, fmt.Errorf("customer %d: %w", customerID, ErrNotFound)
	}
	name := text(partners[0].Member("name"))
	email := text(partners[0].Member("email"))
	if email == "" {
		return PortalAccount{}, fmt.Errorf("customer %d has no email address", customerID)
	}

	existing, err := s.search(ctx, "res.users", domain([3]any{"partner_id", "=", customerID}))
	if err != nil {
		return PortalAccount{}, fmt.Errorf("failed to look up portal user: %w", err)
	}
	if len(existing) > 0 {
		s.sendPasswordReset(ctx, existing[0])
		return PortalAccount{UserID: existing[0], Existing: true, URL: s.PortalURL()}, nil
	}

	groupID, fellBack, err := s.portalGroup(ctx)
	if err != nil {
		return PortalAccount{}, err
	}

	userID, err := s.create(ctx, "res.users", map[string]any{
		"name":       name,
		"login":      email,
		"email":      email,
		"partner_id": customerID,
		"active":     true,
	})
	if err != nil {
		return PortalAccount{}, fmt.Errorf("failed to create portal user: %w", err)
	}

	// Command 6 replaces all groups, dropping the default internal group.
	_, err = s.exec.Execute(ctx, "res.users", "write", []any{
		[]int64{userID},
		map[string]any{"group_ids": []any{[]any{6, 0, []int64{groupID}}}},
	}, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "could not move user into portal group",
			slog.Int64("user_id", userID),
			slog.Int64("group_id", groupID),
			slog.String("error", err.Error()),
		)
	}
	s.sendPasswordReset(ctx, userID)

	return PortalAccount{UserID: userID, URL: s.PortalURL(), GroupFallback: fellBack}, nil
}

// portalGroup resolves base.group_portal, falling back to the configured id.
func (s *Service) portalGroup(ctx context.Context) (int64, bool, error) {
	rows, err := s.searchRead(ctx, "ir.model.data",
		domain([3]any{"module", "=", "base"}, [3]any{"name", "=", "group_portal"}),
		"res_id")
	if err == nil && len(rows) > 0 {
		if id, ok := rows[0].Member("res_id").Int(); ok && id > 0 {
			return id, false, nil
		}
	}
	if err == nil {
		err = errors.New("base.group_portal not found")
	}
	if s.cfg.PortalGroupID <= 0 {
		return 0, false, fmt.Errorf("portal group unavailable: %w", err)
	}
	s.lookupFallback(ctx, "portal_group", s.cfg.PortalGroupID, err)
	return s.cfg.PortalGroupID, true, nil
}

func (s *Service) sendPasswordReset(ctx context.Context, userID int64) {
	if err := s.call(ctx, "res.users", "action_reset_password", userID); err != nil {
		s.logger.WarnContext(ctx, "could not send password reset mail",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
