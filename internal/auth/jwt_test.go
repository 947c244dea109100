package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))

	token, err := manager.GenerateToken("ops", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("expected subject ops, got %q", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role admin, got %q", claims.Role)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))
	other := NewJWTManager(DefaultJWTConfig("other-secret"))

	token, err := manager.GenerateToken("ops", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.Expiry = -time.Hour
	manager := NewJWTManager(cfg)

	token, err := manager.GenerateToken("ops", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig("test-secret"))

	var claimsSeen bool
	handler := RequireAdmin(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claimsSeen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	adminToken, _ := manager.GenerateToken("ops", "admin")
	viewerToken, _ := manager.GenerateToken("ops", "viewer")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid admin", "Bearer " + adminToken, http.StatusOK},
		{"wrong role", "Bearer " + viewerToken, http.StatusForbidden},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/rebuild", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			claimsSeen = false
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && !claimsSeen {
				t.Error("expected claims in request context")
			}
		})
	}
}
