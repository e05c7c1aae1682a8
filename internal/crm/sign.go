package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RoleResolver maps a template's sign items to the distinct signer roles
// they are assigned to, in first-seen order. Failures are absorbed; an
// empty result means nothing could be resolved.
type RoleResolver interface {
	ResolveRoles(ctx context.Context, exec Executor, itemIDs []int64) []int64
}

// FanOutRoleResolver reads each sign item individually so one unreadable
// item does not hide the others.
type FanOutRoleResolver struct {
	Logger *slog.Logger
}

func (r FanOutRoleResolver) ResolveRoles(ctx context.Context, exec Executor, itemIDs []int64) []int64 {
	var roles roleSet
	for _, itemID := range itemIDs {
		v, err := exec.Execute(ctx, "sign.item", "read", []any{[]int64{itemID}, []string{"responsible_id"}}, nil)
		if err != nil {
			if r.Logger != nil {
				r.Logger.DebugContext(ctx, "skipping unreadable sign item",
					slog.Int64("item_id", itemID),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		for _, item := range v.List() {
			if id, ok := relationID(item.Member("responsible_id")); ok {
				roles.add(id)
			}
		}
	}
	return roles.ids
}

// BatchRoleResolver reads all sign items in a single call.
type BatchRoleResolver struct{}

func (BatchRoleResolver) ResolveRoles(ctx context.Context, exec Executor, itemIDs []int64) []int64 {
	if len(itemIDs) == 0 {
		return nil
	}
	v, err := exec.Execute(ctx, "sign.item", "read", []any{itemIDs, []string{"responsible_id"}}, nil)
	if err != nil {
		return nil
	}
	var roles roleSet
	for _, item := range v.List() {
		if id, ok := relationID(item.Member("responsible_id")); ok {
			roles.add(id)
		}
	}
	return roles.ids
}

type roleSet struct {
	seen map[int64]bool
	ids  []int64
}

func (s *roleSet) add(id int64) {
	if s.seen == nil {
		s.seen = map[int64]bool{}
	}
	if !s.seen[id] {
		s.seen[id] = true
		s.ids = append(s.ids, id)
	}
}

// ResolveSignTemplate returns the first sign.template whose name contains
// name, or ErrNotFound.
func (s *Service) ResolveSignTemplate(ctx context.Context, name string) (int64, error) {
	id, err := s.searchFirst(ctx, "sign.template", domain([3]any{"name", "ilike", name}))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("failed to look up sign template: %w", err)
	}
	return id, err
}

// ResolveTemplateRoles returns the signer roles used by the template's sign
// items. An unreadable template yields an empty set.
func (s *Service) ResolveTemplateRoles(ctx context.Context, templateID int64) []int64 {
	templates, err := s.read(ctx, "sign.template", []int64{templateID}, "sign_item_ids")
	if err != nil {
		s.logger.WarnContext(ctx, "could not read sign template",
			slog.Int64("template_id", templateID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(templates) == 0 {
		return nil
	}
	itemIDs := ids(templates[0].Member("sign_item_ids"))
	if len(itemIDs) == 0 {
		return nil
	}
	return s.roles.ResolveRoles(ctx, s.exec, itemIDs)
}

// SignURLSource says where the signing link came from.
type SignURLSource string

const (
	SignURLFromItemToken    SignURLSource = "item_token"
	SignURLFromRequestToken SignURLSource = "request_token"
	SignURLPortal           SignURLSource = "portal"
)

// SigningInput describes the signing request to create.
type SigningInput struct {
	CustomerID   int64
	CustomerName string
	TemplateID   int64
	RoleIDs      []int64
}

// SigningRequest is a created sign.request and the link to sign it.
type SigningRequest struct {
	ID     int64
	URL    string
	Source SignURLSource
	// RoleFallback is true when the configured fallback role was used.
	RoleFallback bool
}

// CreateSigningRequest creates the sign.request for the customer and works
// out a signing link. Once the request exists the call succeeds; the link
// degrades from the item token to the request token to the portal page.
func (s *Service) CreateSigningRequest(ctx context.Context, in SigningInput) (SigningRequest, error) {
	var result SigningRequest

	roleID := int64(0)
	if len(in.RoleIDs) > 0 {
		roleID = in.RoleIDs[0]
	} else {
		if s.cfg.FallbackRoleID <= 0 {
			return result, errors.New("sign template has no roles and no fallback role is configured")
		}
		roleID = s.cfg.FallbackRoleID
		result.RoleFallback = true
		s.lookupFallback(ctx, "sign_role", roleID, nil)
	}

	id, err := s.create(ctx, "sign.request", map[string]any{
		"template_id": in.TemplateID,
		"reference":   "WARMANO Wartungsvertrag - " + in.CustomerName,
		"request_item_ids": []any{[]any{0, 0, map[string]any{
			"partner_id": in.CustomerID,
			"role_id":    roleID,
		}}},
	})
	if err != nil {
		return result, fmt.Errorf("failed to create sign request: %w", err)
	}
	result.ID = id

	if err := s.call(ctx, "sign.request", "action_sent", id); err != nil {
		s.logger.WarnContext(ctx, "action_sent failed on sign request",
			slog.Int64("sign_request_id", id),
			slog.String("error", err.Error()),
		)
	}

	result.URL, result.Source = s.signingURL(ctx, id)
	return result, nil
}

func (s *Service) signingURL(ctx context.Context, requestID int64) (string, SignURLSource) {
	items, err := s.searchRead(ctx, "sign.request.item",
		domain([3]any{"sign_request_id", "=", requestID}),
		"access_token", "partner_id")
	if err == nil && len(items) > 0 {
		if token := unwrapString(text(items[0].Member("access_token"))); token != "" {
			return s.tokenURL(requestID, token), SignURLFromItemToken
		}
	}

	requests, err := s.read(ctx, "sign.request", []int64{requestID}, "access_token")
	if err == nil && len(requests) > 0 {
		if token := unwrapString(text(requests[0].Member("access_token"))); token != "" {
			return s.tokenURL(requestID, token), SignURLFromRequestToken
		}
	}

	return fmt.Sprintf("%s/my/signature/%d", s.cfg.BaseURL, requestID), SignURLPortal
}

func (s *Service) tokenURL(requestID int64, token string) string {
	return fmt.Sprintf("%s/sign/document/%d/%s", s.cfg.BaseURL, requestID, token)
}
