package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server/reqctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestContext_SetsContextAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	if err := r.SetTrustedProxies([]string{"192.0.2.1"}); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}
	r.Use(RequestContext(zap.New(core), "/health"))

	var gotID, gotIP string
	var scoped bool
	r.GET("/ping", func(c *gin.Context) {
		gotID, _ = reqctx.RequestID(c.Request.Context())
		gotIP, _ = reqctx.ClientIP(c.Request.Context())
		scoped = logger.FromContext(c.Request.Context()) != zap.L()
		c.Status(http.StatusNoContent)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if gotID != "req-42" || w.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("request id = %q, header %q", gotID, w.Header().Get(RequestIDHeader))
	}
	if gotIP != "203.0.113.9" {
		t.Errorf("client ip = %q", gotIP)
	}
	if !scoped {
		t.Error("handler should see a request-scoped logger")
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d requests, want 1 (health is quiet)", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["path"] != "/ping" || fields["status"] != int64(http.StatusNoContent) {
		t.Errorf("fields = %v", fields)
	}
}

func TestRequestContext_GeneratesID(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("generated request id = %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRequestContext_ClientIPTrust(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		header  map[string]string
		want    string
	}{
		{"no trusted proxies ignores forwarded-for", nil, "198.51.100.7:4000", map[string]string{"X-Forwarded-For": "10.9.9.9"}, "198.51.100.7"},
		{"no trusted proxies ignores real ip", nil, "198.51.100.7:4000", map[string]string{"X-Real-IP": "10.9.9.9"}, "198.51.100.7"},
		{"trusted proxy forwards client", []string{"10.0.0.0/8"}, "10.0.0.5:4000", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "198.51.100.1"},
		{"untrusted peer with trusted list", []string{"10.0.0.0/8"}, "192.0.2.10:4000", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "192.0.2.10"},
		{"remote addr only", nil, "192.0.2.11:5555", nil, "192.0.2.11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			if err := r.SetTrustedProxies(tt.trusted); err != nil {
				t.Fatalf("SetTrustedProxies: %v", err)
			}
			r.Use(RequestContext(zap.NewNop()))
			var got string
			r.GET("/", func(c *gin.Context) {
				got, _ = reqctx.ClientIP(c.Request.Context())
				c.Status(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || w.Body.String() != `{"message":"internal error"}` {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	l := NewRateLimiter(3)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if !l.Allow("198.51.100.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("198.51.100.1") {
		t.Error("fourth request within the burst window should be rejected")
	}
	if !l.Allow("198.51.100.2") {
		t.Error("other clients have their own bucket")
	}

	l.now = func() time.Time { return base.Add(20 * time.Second) }
	if !l.Allow("198.51.100.1") {
		t.Error("bucket should refill one token every 20s")
	}

	l.now = func() time.Time { return base.Add(time.Hour) }
	l.Allow("198.51.100.3")
	l.mu.Lock()
	n := len(l.visitors)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("idle visitors not swept: %d remain", n)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext(zap.NewNop()))
	r.POST("/register", NewRateLimiter(1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestRequireAccess(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, _, err := tokens.IssueAccess("session-1", "user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, _, err := tokens.IssueRefresh("session-1", "user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	r := gin.New()
	r.GET("/me", RequireAccess(tokens), func(c *gin.Context) {
		uid, _ := reqctx.UserID(c.Request.Context())
		sid, _ := reqctx.SessionID(c.Request.Context())
		c.String(http.StatusOK, uid+"/"+sid)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "bearer " + access, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + access, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "user-1/session-1" {
				t.Errorf("identity = %q", w.Body.String())
			}
		})
	}
}

func TestRateLimiter_RotatingForwardedForStillLimited(t *testing.T) {
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}
	r.Use(RequestContext(zap.NewNop()))
	r.POST("/register", NewRateLimiter(1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		} else if w.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	if allowed != 1 {
		t.Errorf("allowed %d of 50 requests with rotating X-Forwarded-For, want 1", allowed)
	}
}
