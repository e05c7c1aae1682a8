package crm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/testutil"
)

const baseURL = "https://warmano.odoo.com"

func newService(t *testing.T, opts ...crm.Option) (*crm.Service, *testutil.FakeOdoo) {
	t.Helper()
	fake := testutil.NewFakeOdoo()
	cfg := crm.DefaultConfig()
	cfg.BaseURL = baseURL
	opts = append([]crm.Option{crm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return crm.NewService(fake, cfg, opts...), fake
}

func textField(rec map[string]xmlrpc.Value, name string) string {
	s, _ := rec[name].Text()
	return s
}

func TestFindOrCreateCustomer_Idempotent(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()

	first, err := svc.FindOrCreateCustomer(ctx, crm.Identity{
		Name: "Max Muster", Email: "max@example.com", Phone: "0301",
		Street: "Hauptstr. 1", Zip: "10115", City: "Berlin",
	})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer() error = %v", err)
	}
	second, err := svc.FindOrCreateCustomer(ctx, crm.Identity{
		Name: "Max Muster", Email: "max@example.com", Phone: "0302",
		Street: "Hauptstr. 1", Zip: "10115", City: "Berlin",
	})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer() second call error = %v", err)
	}

	if first != second {
		t.Errorf("ids = %v, %v, want equal", first, second)
	}
	if got := fake.Count("res.partner"); got != 1 {
		t.Errorf("partner count = %v, want %v", got, 1)
	}
	rec, _ := fake.Record("res.partner", first)
	if got := textField(rec, "phone"); got != "0302" {
		t.Errorf("phone = %v, want %v", got, "0302")
	}
	if !rec["country_id"].Equal(xmlrpc.Int(57)) {
		t.Errorf("country_id = %v, want %v", rec["country_id"], 57)
	}
}

func TestFindOrCreateCustomer_Fault(t *testing.T) {
	svc, fake := newService(t)
	fake.Fail("res.partner", "create", "ValidationError")

	_, err := svc.FindOrCreateCustomer(context.Background(), crm.Identity{Name: "A", Email: "a@b.c"})
	if err == nil || !strings.Contains(err.Error(), "ValidationError") {
		t.Errorf("FindOrCreateCustomer() error = %v, want ValidationError", err)
	}
}

func TestCreateOpportunity(t *testing.T) {
	svc, fake := newService(t)
	id, err := svc.CreateOpportunity(context.Background(), crm.OpportunityInput{
		FirstName: "Max", LastName: "Muster", Email: "max@example.com", Phone: "0301",
		Street: "Hauptstr. 1", Zip: "10115", City: "Berlin",
		Tier: crm.TierStandard, Duration: crm.ThreeYears, Frequency: crm.Monthly,
		Manufacturer: "Viessmann", Message: "Bitte vormittags",
	})
	if err != nil {
		t.Fatalf("CreateOpportunity() error = %v", err)
	}

	rec, _ := fake.Record("crm.lead", id)
	if got, want := textField(rec, "name"), "WARMANO Standard (349€/Jahr) - Max Muster"; got != want {
		t.Errorf("name = %v, want %v", got, want)
	}
	if got := textField(rec, "type"); got != "opportunity" {
		t.Errorf("type = %v, want opportunity", got)
	}
	desc := textField(rec, "description")
	for _, want := range []string{
		"Paket: Standard (349€/Jahr)",
		"Vertragslaufzeit: 3 Jahre (1. Jahr gratis)",
		"Zahlweise: Monatlich",
		"- Hersteller: Viessmann",
		"- Modell: Nicht angegeben",
		"- Installationsjahr: Nicht angegeben",
		"Nachricht: Bitte vormittags",
	} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q:\n%s", want, desc)
		}
	}
	if strings.Contains(desc, "Wunschtermin") {
		t.Errorf("description mentions an absent preferred date:\n%s", desc)
	}
}

func TestProvisionPortalAccount(t *testing.T) {
	t.Run("new user with looked up group", func(t *testing.T) {
		svc, fake := newService(t)
		partner := fake.Seed("res.partner", map[string]any{"name": "Max", "email": "max@example.com"})
		fake.Seed("ir.model.data", map[string]any{"module": "base", "name": "group_portal", "res_id": 11})

		acct, err := svc.ProvisionPortalAccount(context.Background(), partner)
		if err != nil {
			t.Fatalf("ProvisionPortalAccount() error = %v", err)
		}
		if acct.Existing || acct.GroupFallback {
			t.Errorf("account = %+v, want new user without fallback", acct)
		}
		if acct.URL != baseURL+"/my" {
			t.Errorf("URL = %v, want %v", acct.URL, baseURL+"/my")
		}
		user, _ := fake.Record("res.users", acct.UserID)
		want := xmlrpc.List(xmlrpc.List(xmlrpc.Int(6), xmlrpc.Int(0), xmlrpc.List(xmlrpc.Int(11))))
		if !user["group_ids"].Equal(want) {
			t.Errorf("group_ids = %v, want %v", user["group_ids"], want)
		}
		if got := textField(user, "login"); got != "max@example.com" {
			t.Errorf("login = %v, want max@example.com", got)
		}
		if fake.CallCount("res.users", "action_reset_password") != 1 {
			t.Error("expected one password reset mail")
		}
	})

	t.Run("group lookup falls back to configured id", func(t *testing.T) {
		svc, fake := newService(t)
		partner := fake.Seed("res.partner", map[string]any{"name": "Max", "email": "max@example.com"})
		fake.Fail("ir.model.data", "search_read", "AccessError")

		acct, err := svc.ProvisionPortalAccount(context.Background(), partner)
		if err != nil {
			t.Fatalf("ProvisionPortalAccount() error = %v", err)
		}
		if !acct.GroupFallback {
			t.Error("GroupFallback = false, want true")
		}
		user, _ := fake.Record("res.users", acct.UserID)
		want := xmlrpc.List(xmlrpc.List(xmlrpc.Int(6), xmlrpc.Int(0), xmlrpc.List(xmlrpc.Int(10))))
		if !user["group_ids"].Equal(want) {
			t.Errorf("group_ids = %v, want %v", user["group_ids"], want)
		}
	})

	t.Run("no group and no fallback", func(t *testing.T) {
		fake := testutil.NewFakeOdoo()
		cfg := crm.DefaultConfig()
		cfg.PortalGroupID = 0
		svc := crm.NewService(fake, cfg, crm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		partner := fake.Seed("res.partner", map[string]any{"name": "Max", "email": "max@example.com"})

		if _, err := svc.ProvisionPortalAccount(context.Background(), partner); err == nil {
			t.Fatal("ProvisionPortalAccount() expected error")
		}
		if fake.Count("res.users") != 0 {
			t.Error("user created despite missing portal group")
		}
	})

	t.Run("existing user", func(t *testing.T) {
		svc, fake := newService(t)
		partner := fake.Seed("res.partner", map[string]any{"name": "Max", "email": "max@example.com"})
		userID := fake.Seed("res.users", map[string]any{"partner_id": partner, "login": "max@example.com"})

		acct, err := svc.ProvisionPortalAccount(context.Background(), partner)
		if err != nil {
			t.Fatalf("ProvisionPortalAccount() error = %v", err)
		}
		if !acct.Existing || acct.UserID != userID {
			t.Errorf("account = %+v, want existing user %d", acct, userID)
		}
		if fake.CallCount("res.users", "create") != 0 {
			t.Error("unexpected res.users create")
		}
	})

	t.Run("customer without email", func(t *testing.T) {
		svc, fake := newService(t)
		partner := fake.Seed("res.partner", map[string]any{"name": "Max"})
		if _, err := svc.ProvisionPortalAccount(context.Background(), partner); err == nil {
			t.Fatal("ProvisionPortalAccount() expected error")
		}
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.ProvisionPortalAccount(context.Background(), 999)
		if !errors.Is(err, crm.ErrNotFound) {
			t.Fatalf("ProvisionPortalAccount() error = %v, want ErrNotFound", err)
		}
	})
}

func TestResolveSignTemplate(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()

	if _, err := svc.ResolveSignTemplate(ctx, "WARMANO Wartungsvertrag.pdf"); !errors.Is(err, crm.ErrNotFound) {
		t.Fatalf("ResolveSignTemplate() error = %v, want ErrNotFound", err)
	}

	id := fake.Seed("sign.template", map[string]any{"name": "warmano wartungsvertrag.pdf"})
	got, err := svc.ResolveSignTemplate(ctx, "WARMANO Wartungsvertrag.pdf")
	if err != nil {
		t.Fatalf("ResolveSignTemplate() error = %v", err)
	}
	if got != id {
		t.Errorf("ResolveSignTemplate() = %v, want %v", got, id)
	}
}

func seedTemplateWithRoles(fake *testutil.FakeOdoo) int64 {
	a := fake.Seed("sign.item", map[string]any{"responsible_id": []any{7, "Kunde"}})
	b := fake.Seed("sign.item", map[string]any{"responsible_id": []any{3, "Firma"}})
	c := fake.Seed("sign.item", map[string]any{"responsible_id": []any{7, "Kunde"}})
	return fake.Seed("sign.template", map[string]any{
		"name":          "WARMANO Wartungsvertrag.pdf",
		"sign_item_ids": []int64{a, b, c},
	})
}

func TestResolveTemplateRoles(t *testing.T) {
	resolvers := map[string]crm.RoleResolver{
		"fan-out": crm.FanOutRoleResolver{},
		"batch":   crm.BatchRoleResolver{},
	}
	for name, resolver := range resolvers {
		t.Run(name, func(t *testing.T) {
			svc, fake := newService(t, crm.WithRoleResolver(resolver))
			tmpl := seedTemplateWithRoles(fake)

			got := svc.ResolveTemplateRoles(context.Background(), tmpl)
			if len(got) != 2 || got[0] != 7 || got[1] != 3 {
				t.Errorf("ResolveTemplateRoles() = %v, want [7 3]", got)
			}
		})
	}

	t.Run("item reads failing", func(t *testing.T) {
		svc, fake := newService(t)
		tmpl := seedTemplateWithRoles(fake)
		fake.Fail("sign.item", "read", "AccessError")

		if got := svc.ResolveTemplateRoles(context.Background(), tmpl); len(got) != 0 {
			t.Errorf("ResolveTemplateRoles() = %v, want empty", got)
		}
	})

	t.Run("fan-out reads one item per call", func(t *testing.T) {
		svc, fake := newService(t)
		tmpl := seedTemplateWithRoles(fake)
		svc.ResolveTemplateRoles(context.Background(), tmpl)
		if got := fake.CallCount("sign.item", "read"); got != 3 {
			t.Errorf("sign.item reads = %v, want %v", got, 3)
		}
	})
}

func TestCreateSigningRequest(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(fake *testutil.FakeOdoo)
		roles      []int64
		wantURL    func(id int64) string
		wantSource crm.SignURLSource
		wantRole   int64
	}{
		{
			name: "item token",
			setup: func(fake *testutil.FakeOdoo) {
				fake.OnCreate("sign.request", func(id int64, _ xmlrpc.Value) {
					fake.Seed("sign.request.item", map[string]any{"sign_request_id": id, "access_token": "tok123"})
				})
			},
			roles:      []int64{4},
			wantURL:    func(id int64) string { return baseURL + "/sign/document/" + itoa(id) + "/tok123" },
			wantSource: crm.SignURLFromItemToken,
			wantRole:   4,
		},
		{
			name: "token wrapped in markup",
			setup: func(fake *testutil.FakeOdoo) {
				fake.OnCreate("sign.request", func(id int64, _ xmlrpc.Value) {
					fake.Seed("sign.request.item", map[string]any{"sign_request_id": id, "access_token": "<string>abc</string>"})
				})
			},
			roles:      []int64{4},
			wantURL:    func(id int64) string { return baseURL + "/sign/document/" + itoa(id) + "/abc" },
			wantSource: crm.SignURLFromItemToken,
			wantRole:   4,
		},
		{
			name: "request token",
			setup: func(fake *testutil.FakeOdoo) {
				fake.OnCreate("sign.request", func(id int64, _ xmlrpc.Value) {
					fake.Update("sign.request", id, map[string]any{"access_token": "req456"})
				})
			},
			wantURL:    func(id int64) string { return baseURL + "/sign/document/" + itoa(id) + "/req456" },
			wantSource: crm.SignURLFromRequestToken,
			wantRole:   7,
		},
		{
			name:       "portal fallback",
			setup:      func(fake *testutil.FakeOdoo) {},
			wantURL:    func(id int64) string { return baseURL + "/my/signature/" + itoa(id) },
			wantSource: crm.SignURLPortal,
			wantRole:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fake := newService(t)
			tt.setup(fake)

			req, err := svc.CreateSigningRequest(context.Background(), crm.SigningInput{
				CustomerID: 5, CustomerName: "Max Muster", TemplateID: 2, RoleIDs: tt.roles,
			})
			if err != nil {
				t.Fatalf("CreateSigningRequest() error = %v", err)
			}
			if req.URL != tt.wantURL(req.ID) {
				t.Errorf("URL = %v, want %v", req.URL, tt.wantURL(req.ID))
			}
			if req.Source != tt.wantSource {
				t.Errorf("Source = %v, want %v", req.Source, tt.wantSource)
			}
			if req.RoleFallback != (len(tt.roles) == 0) {
				t.Errorf("RoleFallback = %v, want %v", req.RoleFallback, len(tt.roles) == 0)
			}

			rec, _ := fake.Record("sign.request", req.ID)
			if got := textField(rec, "reference"); got != "WARMANO Wartungsvertrag - Max Muster" {
				t.Errorf("reference = %v", got)
			}
			items := rec["request_item_ids"].List()
			if len(items) != 1 {
				t.Fatalf("request_item_ids = %v, want one command", rec["request_item_ids"])
			}
			cmd := items[0].List()
			if len(cmd) != 3 || !cmd[2].Member("role_id").Equal(xmlrpc.Int(tt.wantRole)) {
				t.Errorf("request item = %v, want role %d", items[0], tt.wantRole)
			}
		})
	}
}

func TestCreateSigningRequest_CreateFails(t *testing.T) {
	svc, fake := newService(t)
	fake.Fail("sign.request", "create", "MissingError")

	if _, err := svc.CreateSigningRequest(context.Background(), crm.SigningInput{CustomerID: 1, TemplateID: 2}); err == nil {
		t.Fatal("CreateSigningRequest() expected error")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
