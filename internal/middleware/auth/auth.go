// Package auth guards mutating routes: it validates the access-token
// cookie and exposes the caller's identity/role to handlers.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Gate struct {
	JWTSecret []byte
}

const cookieName = "accessToken"

// TokenTTL matches the cookie lifetime issued at login.
const TokenTTL = 30 * 24 * time.Hour

func (g *Gate) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := g.parse(c)
		if err != nil {
			return err
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (g *Gate) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := g.parse(c)
		if err != nil {
			return err
		}
		if isAdmin, _ := claims["adm"].(bool); !isAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "not authorized as an admin")
		}
		setUserContext(c, claims)
		return next(c)
	}
}

func (g *Gate) parse(c echo.Context) (jwt.MapClaims, error) {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authorized, no token")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authorized, token failed")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	if _, ok := claims["sub"].(float64); !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	return claims, nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	isAdmin, _ := claims["adm"].(bool)
	c.Set("isAdmin", isAdmin)
}

// UserID reads the authenticated caller set by the middleware.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "not authorized")
	}
	return id, nil
}

func SignToken(userID uint, isAdmin bool, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"adm": isAdmin,
		"exp": time.Now().Add(TokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// AccessCookie wraps CreateCookie with the token cookie's fixed name.
func AccessCookie(value string, exp time.Time) *http.Cookie {
	return CreateCookie(cookieName, value, "/", exp)
}
