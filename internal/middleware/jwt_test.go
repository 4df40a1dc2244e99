package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flash-sale-backend/internal/model"
	"github.com/iliyamo/flash-sale-backend/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, model.RoleCustomer, 5)
	require.NoError(t, err)

	rec, c := runProtected(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	uid, ok := UserID(c)
	require.True(t, ok)
	require.Equal(t, uint64(42), uid)
	require.Equal(t, model.RoleCustomer, c.Get("role"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runProtected(t, "", JWTAuth(testSecret))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, model.RoleCustomer, 5)
	require.NoError(t, err)

	rec, _ := runProtected(t, "Bearer "+tok.Token, JWTAuth(testSecret))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	admin, err := utils.NewAccessToken(testSecret, 1, model.RoleAdmin, 5)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken(testSecret, 2, model.RoleCustomer, 5)
	require.NoError(t, err)

	rec, _ := runProtected(t, "Bearer "+admin.Token, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = runProtected(t, "Bearer "+customer.Token, JWTAuth(testSecret), RequireRole(model.RoleAdmin))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
