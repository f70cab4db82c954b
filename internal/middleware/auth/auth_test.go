package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func doRequest(t *testing.T, gate *Gate, mw func(echo.HandlerFunc) echo.HandlerFunc, cookie *http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"userID":  c.Get("userID"),
			"isAdmin": c.Get("isAdmin"),
		})
	})
	return rec, handler(c)
}

func TestRequireLogin(t *testing.T) {
	gate := &Gate{JWTSecret: secret}

	token, err := SignToken(42, false, secret)
	require.NoError(t, err)

	rec, err := doRequest(t, gate, gate.RequireLogin, AccessCookie(token, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "42")
}

func TestRequireLoginMissingCookie(t *testing.T) {
	gate := &Gate{JWTSecret: secret}

	_, err := doRequest(t, gate, gate.RequireLogin, nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireLoginBadSignature(t *testing.T) {
	gate := &Gate{JWTSecret: secret}

	token, err := SignToken(42, false, []byte("other-secret"))
	require.NoError(t, err)

	_, err = doRequest(t, gate, gate.RequireLogin, AccessCookie(token, time.Now().Add(time.Hour)))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAdminOnly(t *testing.T) {
	gate := &Gate{JWTSecret: secret}

	userToken, err := SignToken(42, false, secret)
	require.NoError(t, err)
	_, err = doRequest(t, gate, gate.AdminOnly, AccessCookie(userToken, time.Now().Add(time.Hour)))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)

	adminToken, err := SignToken(7, true, secret)
	require.NoError(t, err)
	rec, err := doRequest(t, gate, gate.AdminOnly, AccessCookie(adminToken, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "true")
}
