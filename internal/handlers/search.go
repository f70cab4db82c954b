package handlers

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/logging"
	"github.com/kofiasare/storefront/internal/service/search"
	"github.com/kofiasare/storefront/internal/util"
)

type SearchHandler struct {
	ES *elasticsearch.Client
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search")

	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	total, products, err := search.Search(ctx, h.ES, search.Index, query, from, limit)
	if err != nil {
		l.Error("search_failed", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search backend error")
	}

	l.Info("search_success", "status", 200, "query", query, "total", total)
	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"products": products,
	})
}
