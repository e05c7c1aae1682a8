package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHashAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		expected string
	}{
		{
			name:     "simple key",
			apiKey:   "test-key-123",
			expected: "625faa3fbbc3d2bd9d6ee7678d04cc5339cb33dc68d9b58451853d60046e226a",
		},
		{
			name:     "empty key",
			apiKey:   "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hash := HashAPIKey(tt.apiKey); hash != tt.expected {
				t.Errorf("HashAPIKey() = %v, want %v", hash, tt.expected)
			}
		})
	}
}

func TestAuthenticator_ValidateAPIKey(t *testing.T) {
	a := NewAuthenticator("admin-secret")

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "admin-secret", nil},
		{"wrong", "guess", ErrInvalidKey},
		{"empty", "", ErrMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.ValidateAPIKey(tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestNewAuthenticator_EmptyKeyRejectsAll(t *testing.T) {
	a := NewAuthenticator("  ")
	if a != nil {
		t.Fatalf("NewAuthenticator(blank) = %v, want nil", a)
	}
	if err := a.ValidateAPIKey("anything"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ValidateAPIKey() on nil authenticator = %v, want %v", err, ErrInvalidKey)
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{"api key header", map[string]string{HeaderAPIKey: "k1"}, "k1", false},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "k2", false},
		{"lowercase bearer", map[string]string{"Authorization": "bearer k3"}, "k3", false},
		{"header wins over bearer", map[string]string{HeaderAPIKey: "k1", "Authorization": "Bearer k2"}, "k1", false},
		{"basic scheme", map[string]string{"Authorization": "Basic abc"}, "", true},
		{"missing", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/bookings", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			got, err := ExtractAPIKey(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
