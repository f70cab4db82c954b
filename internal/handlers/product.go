package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/middleware/auth"
	"github.com/kofiasare/storefront/internal/service/catalog"
	"github.com/kofiasare/storefront/internal/service/search"
)

type ProductHandler struct {
	Catalog  *catalog.Service
	ES       *elasticsearch.Client
	Producer *events.Producer
}

func (h *ProductHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_create")

	var in catalog.ProductInput
	if err := c.Bind(&in); err != nil {
		l.Warn("product_create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Catalog.CreateProduct(ctx, in)
	if err != nil {
		return catalogError(l, "product_create_failed", err)
	}

	h.index(c, prod.ID)
	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	l.Info("product_create_success", "status", 201, "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_update")

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in catalog.ProductInput
	if err := c.Bind(&in); err != nil {
		l.Warn("product_update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Catalog.UpdateProduct(ctx, id, in)
	if err != nil {
		return catalogError(l, "product_update_failed", err)
	}

	h.index(c, prod.ID)
	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_updated",
		"productID": prod.ID,
	})

	l.Info("product_update_success", "status", 200, "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_delete")

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	prod, err := h.Catalog.DeleteProduct(ctx, id)
	if err != nil {
		return catalogError(l, "product_delete_failed", err)
	}

	if h.ES != nil {
		if err := search.DeleteProduct(ctx, h.ES, search.Index, id); err != nil {
			l.Error("es_delete_error", "product_id", id, "error", err)
		}
	}
	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(id), map[string]interface{}{
		"type":      "product_deleted",
		"productID": id,
	})

	l.Info("product_delete_success", "status", 200, "product_id", id)
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	prod, err := h.Catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_get_failed", err)
	}
	return c.JSON(http.StatusOK, prod)
}

// List serves the paginated keyword search backing the storefront grid.
func (h *ProductHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("pageNumber"))
	keyword := c.QueryParam("keyword")

	pageOut, err := h.Catalog.SearchProducts(c.Request().Context(), keyword, page, 0)
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_list_failed", err)
	}
	return c.JSON(http.StatusOK, pageOut)
}

func (h *ProductHandler) All(c echo.Context) error {
	products, err := h.Catalog.AllProducts(c.Request().Context())
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_all_failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Newest(c echo.Context) error {
	products, err := h.Catalog.NewProducts(c.Request().Context())
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_new_failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Top(c echo.Context) error {
	products, err := h.Catalog.TopProducts(c.Request().Context())
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_top_failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Filter(c echo.Context) error {
	var f catalog.Filter
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	products, err := h.Catalog.FilterProducts(c.Request().Context(), f)
	if err != nil {
		return catalogError(logging.FromContext(c.Request().Context()), "product_filter_failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_review")

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
		Name    string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("product_review_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Catalog.AddReview(ctx, id, userID, req.Name, req.Rating, req.Comment); err != nil {
		return catalogError(l, "product_review_failed", err)
	}

	l.Info("product_review_success", "status", 201, "product_id", id, "user_id", userID)
	return c.JSON(http.StatusCreated, echo.Map{"message": "review added"})
}

// index refreshes the search document after a catalog write. Indexing
// failures are logged, not surfaced: the DB row is the source of truth.
func (h *ProductHandler) index(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	prod, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Error("es_index_error", "product_id", id, "error", err)
		return
	}
	if err := search.IndexProduct(ctx, h.ES, search.Index, prod); err != nil {
		logging.FromContext(ctx).Error("es_index_error", "product_id", id, "error", err)
	}
}

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func catalogError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, catalog.ErrAlreadyReviewed):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrConflict):
		l.Warn(event, "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
