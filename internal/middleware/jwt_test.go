package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovify/rovify-api/internal/utils"
)

func runJWT(t *testing.T, secret, header string) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := JWTAuth(secret)(next)(c)
	return c, rec, err
}

func TestJWTAuth_ValidTokenSetsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken("s3cret", 42, "wallet", 15)
	require.NoError(t, err)

	c, rec, err := runJWT(t, "s3cret", "Bearer "+at.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), c.Get("user_id"))
	assert.Equal(t, "wallet", c.Get("auth_method"))
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	_, rec, err := runJWT(t, "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 42, "credentials", 15)
	require.NoError(t, err)

	_, rec, err := runJWT(t, "s3cret", "Bearer "+at.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_GarbageToken(t *testing.T) {
	_, rec, err := runJWT(t, "s3cret", "Bearer not.a.jwt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func runOptionalJWT(t *testing.T, secret, header string) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := OptionalJWTAuth(secret)(next)(c)
	return c, rec, err
}

func TestOptionalJWTAuth_ValidTokenSetsIdentity(t *testing.T) {
	at, err := utils.NewAccessToken("s3cret", 42, "credentials", 15)
	require.NoError(t, err)

	c, rec, err := runOptionalJWT(t, "s3cret", "Bearer "+at.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(42), c.Get("user_id"))
	assert.Equal(t, "credentials", c.Get("auth_method"))
}

func TestOptionalJWTAuth_MissingHeaderStaysAnonymous(t *testing.T) {
	c, rec, err := runOptionalJWT(t, "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.Get("user_id"))
}

func TestOptionalJWTAuth_InvalidTokenStaysAnonymous(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 42, "credentials", 15)
	require.NoError(t, err)

	c, rec, err := runOptionalJWT(t, "s3cret", "Bearer "+at.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.Get("user_id"))
}
