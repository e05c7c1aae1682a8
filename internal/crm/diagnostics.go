package crm

import (
	"context"
	"fmt"
	"sort"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
)

// ModuleReport lists what the backend has installed that the booking flow
// depends on.
type ModuleReport struct {
	SignInstalled bool     `json:"signInstalled"`
	SignModels    []string `json:"signModels"`
	InstalledApps []string `json:"installedApps"`
}

// SignTemplate is a sign.template with its sign items.
type SignTemplate struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	SignItemIDs []int64 `json:"signItemIds"`
}

// SignRole is a sign.item.role.
type SignRole struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SignTemplateDetails is a template plus every role defined on the backend.
type SignTemplateDetails struct {
	SignTemplate
	Roles []SignRole `json:"roles"`
}

// ModelInfo names an ir.model.
type ModelInfo struct {
	Model string `json:"model"`
	Name  string `json:"name"`
}

// CheckModules reports on the e-signature modules and installed apps.
func (s *Service) CheckModules(ctx context.Context) (ModuleReport, error) {
	signModules, err := s.searchRead(ctx, "ir.module.module",
		domain([3]any{"name", "ilike", "sign"}, [3]any{"state", "=", "installed"}),
		"name", "state")
	if err != nil {
		return ModuleReport{}, fmt.Errorf("failed to list sign modules: %w", err)
	}
	signModels, err := s.FindModels(ctx, "sign")
	if err != nil {
		return ModuleReport{}, err
	}
	apps, err := s.searchRead(ctx, "ir.module.module",
		domain([3]any{"state", "=", "installed"}, [3]any{"application", "=", true}),
		"name")
	if err != nil {
		return ModuleReport{}, fmt.Errorf("failed to list installed apps: %w", err)
	}

	report := ModuleReport{
		SignInstalled: len(signModules) > 0,
		SignModels:    make([]string, 0, len(signModels)),
		InstalledApps: make([]string, 0, len(apps)),
	}
	for _, m := range signModels {
		report.SignModels = append(report.SignModels, m.Model)
	}
	for _, a := range apps {
		report.InstalledApps = append(report.InstalledApps, text(a.Member("name")))
	}
	return report, nil
}

// ListSignTemplates returns every sign template.
func (s *Service) ListSignTemplates(ctx context.Context) ([]SignTemplate, error) {
	templateIDs, err := s.search(ctx, "sign.template", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search sign templates: %w", err)
	}
	if len(templateIDs) == 0 {
		return []SignTemplate{}, nil
	}
	rows, err := s.read(ctx, "sign.template", templateIDs, "name", "sign_item_ids")
	if err != nil {
		return nil, fmt.Errorf("failed to read sign templates: %w", err)
	}
	out := make([]SignTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, signTemplateFrom(row))
	}
	return out, nil
}

// GetSignTemplateDetails returns one template with the available roles, or
// ErrNotFound.
func (s *Service) GetSignTemplateDetails(ctx context.Context, templateID int64) (SignTemplateDetails, error) {
	rows, err := s.read(ctx, "sign.template", []int64{templateID}, "name", "sign_item_ids")
	if err != nil {
		return SignTemplateDetails{}, fmt.Errorf("failed to read sign template %d: %w", templateID, err)
	}
	if len(rows) == 0 {
		return SignTemplateDetails{}, fmt.Errorf("sign template %d: %w", templateID, ErrNotFound)
	}

	roleRows, err := s.searchRead(ctx, "sign.item.role", nil, "name")
	if err != nil {
		return SignTemplateDetails{}, fmt.Errorf("failed to list sign roles: %w", err)
	}
	details := SignTemplateDetails{
		SignTemplate: signTemplateFrom(rows[0]),
		Roles:        make([]SignRole, 0, len(roleRows)),
	}
	for _, r := range roleRows {
		id, _ := r.Member("id").Int()
		details.Roles = append(details.Roles, SignRole{ID: id, Name: text(r.Member("name"))})
	}
	return details, nil
}

// FindModels lists models whose technical name contains pattern.
func (s *Service) FindModels(ctx context.Context, pattern string) ([]ModelInfo, error) {
	rows, err := s.searchRead(ctx, "ir.model", domain([3]any{"model", "ilike", pattern}), "model", "name")
	if err != nil {
		return nil, fmt.Errorf("failed to search models: %w", err)
	}
	out := make([]ModelInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, ModelInfo{Model: text(r.Member("model")), Name: text(r.Member("name"))})
	}
	return out, nil
}

// ModelFields returns the sorted field names of model.
func (s *Service) ModelFields(ctx context.Context, model string) ([]string, error) {
	v, err := s.exec.Execute(ctx, model, "fields_get", []any{[]any{}, []string{"string", "type", "required"}}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get fields of %s: %w", model, err)
	}
	fields := v.Keys()
	sort.Strings(fields)
	if fields == nil {
		fields = []string{}
	}
	return fields, nil
}

// SignItems returns the raw sign items of a template.
func (s *Service) SignItems(ctx context.Context, templateID int64) (xmlrpc.Value, error) {
	v, err := s.exec.Execute(ctx, "sign.item", "search_read", []any{
		domain([3]any{"template_id", "=", templateID}),
		[]string{"name", "type_id", "responsible_id", "required"},
	}, nil)
	if err != nil {
		return xmlrpc.Value{}, fmt.Errorf("failed to read sign items of %d: %w", templateID, err)
	}
	return v, nil
}

func signTemplateFrom(row xmlrpc.Value) SignTemplate {
	id, _ := row.Member("id").Int()
	itemIDs := ids(row.Member("sign_item_ids"))
	if itemIDs == nil {
		itemIDs = []int64{}
	}
	return SignTemplate{ID: id, Name: text(row.Member("name")), SignItemIDs: itemIDs}
}
