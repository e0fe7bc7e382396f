package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type staticValidator map[string]string

func (v staticValidator) Validate(token string) (string, error) {
	if tenantID, ok := v[token]; ok {
		return tenantID, nil
	}
	return "", errors.New("unknown token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTenantAuth(t *testing.T) {
	r := gin.New()
	r.GET("/tenants/:tenant_id", TenantAuth(staticValidator{"good": "acme"}), func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c))
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "valid", path: "/tenants/acme", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "missing header", path: "/tenants/acme", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", path: "/tenants/acme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", path: "/tenants/acme", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "other tenant", path: "/tenants/globex", header: "Bearer good", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "acme" {
				t.Errorf("tenant = %q, want acme", w.Body.String())
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), LoggingMiddleware(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
