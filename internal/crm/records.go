package crm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
)

var (
	stringMarkup = regexp.MustCompile(`<string>([^<]+)</string>`)
	intMarkup    = regexp.MustCompile(`<int>(\d+)</int>`)
)

// domain builds a search domain from [field, operator, value] triples.
func domain(conds ...[3]any) []any {
	out := make([]any, len(conds))
	for i, c := range conds {
		out[i] = []any{c[0], c[1], c[2]}
	}
	return out
}

func (s *Service) search(ctx context.Context, model string, dom []any) ([]int64, error) {
	v, err := s.exec.Execute(ctx, model, "search", []any{dom}, nil)
	if err != nil {
		return nil, err
	}
	return v.IntList(), nil
}

func (s *Service) searchFirst(ctx context.Context, model string, dom []any) (int64, error) {
	ids, err := s.search(ctx, model, dom)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

func (s *Service) read(ctx context.Context, model string, ids []int64, fields ...string) ([]xmlrpc.Value, error) {
	v, err := s.exec.Execute(ctx, model, "read", []any{ids, fields}, nil)
	if err != nil {
		return nil, err
	}
	return v.List(), nil
}

func (s *Service) searchRead(ctx context.Context, model string, dom []any, fields ...string) ([]xmlrpc.Value, error) {
	v, err := s.exec.Execute(ctx, model, "search_read", []any{dom, fields}, nil)
	if err != nil {
		return nil, err
	}
	return v.List(), nil
}

func (s *Service) create(ctx context.Context, model string, vals map[string]any) (int64, error) {
	v, err := s.exec.Execute(ctx, model, "create", []any{vals}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := v.Int()
	if !ok || id <= 0 {
		return 0, fmt.Errorf("%s create returned %v, want a positive id", model, v)
	}
	return id, nil
}

func (s *Service) call(ctx context.Context, model, method string, ids ...int64) error {
	_, err := s.exec.Execute(ctx, model, method, []any{ids}, nil)
	return err
}

// text reads a char field. Odoo reports unset fields as false.
func text(v xmlrpc.Value) string {
	s, _ := v.Text()
	return s
}

// unwrapString strips <string> markup that occasionally leaks into token
// fields.
func unwrapString(s string) string {
	if m := stringMarkup.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ids reads an x2many field that may arrive as a list of ints or as raw
// <int> markup.
func ids(v xmlrpc.Value) []int64 {
	if v.Kind() == xmlrpc.KindList {
		return v.IntList()
	}
	var out []int64
	for _, m := range intMarkup.FindAllStringSubmatch(text(v), -1) {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// relationID reads a many2one field in any of its encodings.
func relationID(v xmlrpc.Value) (int64, bool) {
	if id, _, ok := v.ManyToOne(); ok {
		return id, true
	}
	if m := intMarkup.FindStringSubmatch(text(v)); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		return n, err == nil
	}
	return 0, false
}

func number(v xmlrpc.Value) float64 {
	f, _ := v.Float()
	return f
}
