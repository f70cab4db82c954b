package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/service/catalog"
)

type CategoryHandler struct {
	Catalog *catalog.Service
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category_create")

	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("category_create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		return catalogError(l, "category_create_failed", err)
	}

	l.Info("category_create_success", "status", 201, "category_id", cat.ID)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category_update")

	id, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("category_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Catalog.UpdateCategory(ctx, id, req.Name)
	if err != nil {
		return catalogError(l, "category_update_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category_delete")

	id, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	cat, err := h.Catalog.DeleteCategory(ctx, id)
	if err != nil {
		return catalogError(l, "category_delete_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) List(c echo.Context) error {
	cats, err := h.Catalog.ListCategories(c.Request().Context())
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "category_list_failed", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	cat, err := h.Catalog.GetCategory(c.Request().Context(), id)
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "category_get_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}
