package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims ActorClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authTestRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(secret))
	r.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"role":    c.GetString(ContextActorRole),
			"site_id": c.GetString(ContextActorSiteID),
		})
	})
	return r
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r := authTestRouter(testSecret)
	token := mintToken(t, testSecret, ActorClaims{Role: RoleOperator, SiteID: "SITE-A"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SITE-A")
}

func TestAuthRejectsMissingAndForgedTokens(t *testing.T) {
	r := authTestRouter(testSecret)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged := mintToken(t, "some-other-secret", ActorClaims{Role: RoleAdmin})
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsSiteBoundRoleWithoutSite(t *testing.T) {
	r := authTestRouter(testSecret)
	token := mintToken(t, testSecret, ActorClaims{Role: RoleOperator})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSkipsNonAPIPathsAndDisabledSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	open := authTestRouter("")
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func scopeContext(role, siteID string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if role != "" {
		c.Set(ContextActorRole, role)
	}
	if siteID != "" {
		c.Set(ContextActorSiteID, siteID)
	}
	return c
}

func TestResolveSiteScope(t *testing.T) {
	// Site-bound actor is pinned to their own site.
	c := scopeContext(RoleOperator, "SITE-A")
	site, err := ResolveSiteScope(c, "")
	require.NoError(t, err)
	assert.Equal(t, "SITE-A", site)

	site, err = ResolveSiteScope(c, "SITE-A")
	require.NoError(t, err)
	assert.Equal(t, "SITE-A", site)

	_, err = ResolveSiteScope(c, "SITE-B")
	require.Error(t, err)

	// Cross-site roles keep the requested filter.
	c = scopeContext(RoleDataManager, "SITE-A")
	site, err = ResolveSiteScope(c, "SITE-B")
	require.NoError(t, err)
	assert.Equal(t, "SITE-B", site)

	// No actor at all means no scoping.
	c = scopeContext("", "")
	site, err = ResolveSiteScope(c, "SITE-B")
	require.NoError(t, err)
	assert.Equal(t, "SITE-B", site)
}

func TestEnforcePayloadAndRowSiteScope(t *testing.T) {
	c := scopeContext(RoleInvestigator, "SITE-A")
	assert.NoError(t, EnforcePayloadSiteScope(c, "SITE-A"))
	assert.Error(t, EnforcePayloadSiteScope(c, "SITE-B"))
	assert.NoError(t, EnforceRowSiteScope(c, "SITE-A"))
	assert.Error(t, EnforceRowSiteScope(c, "SITE-B"))

	admin := scopeContext(RoleAdmin, "")
	assert.NoError(t, EnforcePayloadSiteScope(admin, "SITE-B"))
	assert.NoError(t, EnforceRowSiteScope(admin, "SITE-B"))
}

func TestTokenFingerprintIsShortAndStable(t *testing.T) {
	fp := TokenFingerprint("some-token")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, TokenFingerprint("some-token"))
	assert.NotEqual(t, fp, TokenFingerprint("another-token"))
	assert.Empty(t, TokenFingerprint(""))
}
