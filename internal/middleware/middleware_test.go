package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPermissions struct {
	sets  map[model.Role]*model.PermissionSet
	calls int
	err   error
}

func (s *stubPermissions) ForRole(_ context.Context, role model.Role) (*model.PermissionSet, error) {
	s.calls++
	return s.sets[role], s.err
}

type stubTokens map[string]*service.Claims

func (s stubTokens) ValidateToken(tok string) (*service.Claims, error) {
	if tok == "expired" {
		return nil, jwt.ErrTokenExpired
	}
	claims, ok := s[tok]
	if !ok {
		return nil, errors.New("bad token")
	}
	return claims, nil
}

func withClaims(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyClaims, &service.Claims{UserID: 1, Role: role})
		c.Next()
	}
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestRequireCapability(t *testing.T) {
	perms := &stubPermissions{sets: map[model.Role]*model.PermissionSet{
		model.RoleManager: {Role: model.RoleManager, ViewReports: true},
	}}

	cases := []struct {
		name string
		role model.Role
		want int
	}{
		{"admin bypasses lookup", model.RoleAdmin, http.StatusOK},
		{"granted", model.RoleManager, http.StatusOK},
		{"no stored set denies", model.RoleUser, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", withClaims(tc.role), RequireCapability(perms, model.CapViewReports), ok)
			assert.Equal(t, tc.want, serve(r, http.MethodGet, "/x", nil).Code)
		})
	}
	assert.Equal(t, 2, perms.calls)
}

func TestRequireCapability_LookupFailure(t *testing.T) {
	perms := &stubPermissions{err: errors.New("redis down")}
	r := gin.New()
	r.GET("/x", withClaims(model.RoleUser), RequireCapability(perms, model.CapViewReports), ok)

	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodGet, "/x", nil).Code)
}

func TestRequireAnyCapability(t *testing.T) {
	perms := &stubPermissions{sets: map[model.Role]*model.PermissionSet{
		model.RoleUser: {Role: model.RoleUser, ViewInward: true},
	}}
	r := gin.New()
	r.GET("/both", withClaims(model.RoleUser), RequireAnyCapability(perms, model.CapViewOutward, model.CapViewInward), ok)
	r.GET("/none", withClaims(model.RoleUser), RequireAnyCapability(perms, model.CapViewOutward, model.CapViewReports), ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/both", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/none", nil).Code)
}

func TestRequireMasterEntity(t *testing.T) {
	perms := &stubPermissions{sets: map[model.Role]*model.PermissionSet{
		model.RoleUser:    {Role: model.RoleUser, ViewMaster: true, ViewMachineMaster: true},
		model.RoleManager: {Role: model.RoleManager, ViewMachineMaster: true, AccessSettings: true},
	}}
	newRouter := func(role model.Role) *gin.Engine {
		r := gin.New()
		r.GET("/master/:entity", withClaims(role), RequireMasterEntity(perms), func(c *gin.Context) {
			info, found := GetMasterEntity(c)
			require.True(t, found)
			c.String(http.StatusOK, info.Table)
		})
		return r
	}

	w := serve(newRouter(model.RoleUser), http.MethodGet, "/master/machines", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "machines", w.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(newRouter(model.RoleUser), http.MethodGet, "/master/companies", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(newRouter(model.RoleUser), http.MethodGet, "/master/divisions", nil).Code)
	// view_master is required on top of the entity flag.
	assert.Equal(t, http.StatusForbidden, serve(newRouter(model.RoleManager), http.MethodGet, "/master/machines", nil).Code)
	assert.Equal(t, http.StatusOK, serve(newRouter(model.RoleManager), http.MethodGet, "/master/divisions", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(newRouter(model.RoleAdmin), http.MethodGet, "/master/unknown", nil).Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/x", withClaims(model.RoleUser), RequireRole(model.RoleAdmin, model.RoleManager), ok)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/x", nil).Code)
}

func TestRequireJWT(t *testing.T) {
	tokens := stubTokens{"good": {UserID: 5, Role: model.RoleManager}}
	r := gin.New()
	r.GET("/x", RequireJWT(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, string(GetClaims(c).Role))
	})
	r.GET("/ws", RequireWSAuth(tokens), ok)

	w := serve(r, http.MethodGet, "/x", http.Header{"Authorization": {"Bearer good"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "manager", w.Body.String())

	w = serve(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REQUIRED")

	w = serve(r, http.MethodGet, "/x", http.Header{"Authorization": {"Bearer expired"}})
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")

	w = serve(r, http.MethodGet, "/x", http.Header{"Authorization": {"Bearer forged"}})
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ws?token=good", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/ws", http.Header{"Authorization": {"Bearer good"}}).Code)
}

type stubSessions struct{ err error }

func (s stubSessions) ValidateSession(context.Context, int, string) error { return s.err }

func TestRequireActiveSession(t *testing.T) {
	r := gin.New()
	r.GET("/live", withClaims(model.RoleUser), RequireActiveSession(stubSessions{}), ok)
	r.GET("/revoked", withClaims(model.RoleUser), RequireActiveSession(stubSessions{err: service.ErrSessionRevoked}), ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/live", nil).Code)
	w := serve(r, http.MethodGet, "/revoked", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_INVALIDATED")
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestBrotli(t *testing.T) {
	large := strings.Repeat("tooltrack ", 500)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 5, MinLength: 256}))
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "tiny") })
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/xlsx", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte(large))
	})
	accept := http.Header{"Accept-Encoding": {"gzip, br"}}

	w := serve(r, http.MethodGet, "/small", accept)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "tiny", w.Body.String())

	w = serve(r, http.MethodGet, "/large", accept)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(plain))

	w = serve(r, http.MethodGet, "/xlsx", accept)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())

	w = serve(r, http.MethodGet, "/large", nil)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestRecoverAndRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestLogger(log), Recover(log))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	r.GET("/ok", ok)

	w := serve(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "recovered from panic")
	assert.Contains(t, buf.String(), `"status":500`)

	buf.Reset()
	w = serve(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"path":"/ok"`)
	assert.Contains(t, buf.String(), `"level":"info"`)
}
