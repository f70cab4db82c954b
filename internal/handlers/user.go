package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/middleware/auth"
	"github.com/kofiasare/storefront/internal/models"
	"github.com/kofiasare/storefront/internal/service/user"
)

type UserHandler struct {
	Users *user.Service
}

func (h *UserHandler) Profile(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), userID)
	if err != nil {
		return userError(logging.FromContext(c.Request().Context()), "profile_get_failed", err)
	}
	return c.JSON(http.StatusOK, publicUser(u))
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile_update")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var in user.ProfileUpdate
	if err := c.Bind(&in); err != nil {
		l.Warn("profile_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Users.UpdateProfile(ctx, userID, in)
	if err != nil {
		return userError(l, "profile_update_failed", err)
	}

	l.Info("profile_update_success", "status", 200, "user_id", u.ID)
	return c.JSON(http.StatusOK, publicUser(u))
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return userError(logging.FromContext(c.Request().Context()), "user_list_failed", err)
	}
	out := make([]echo.Map, 0, len(users))
	for i := range users {
		out = append(out, publicUser(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), id)
	if err != nil {
		return userError(logging.FromContext(c.Request().Context()), "user_get_failed", err)
	}
	return c.JSON(http.StatusOK, publicUser(u))
}

func (h *UserHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update")

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in user.AdminUpdate
	if err := c.Bind(&in); err != nil {
		l.Warn("user_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Users.AdminUpdate(ctx, id, in)
	if err != nil {
		return userError(l, "user_update_failed", err)
	}

	l.Info("user_update_success", "status", 200, "user_id", u.ID)
	return c.JSON(http.StatusOK, publicUser(u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_delete")

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return userError(l, "user_delete_failed", err)
	}

	l.Info("user_delete_success", "status", 200, "user_id", id)
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// publicUser strips the password hash from API responses.
func publicUser(u *models.User) echo.Map {
	return echo.Map{
		"_id":      u.ID,
		"username": u.Username,
		"email":    u.Email,
		"isAdmin":  u.IsAdmin,
	}
}

func userError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, user.ErrValidation), errors.Is(err, user.ErrAdminDelete):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrConflict):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
