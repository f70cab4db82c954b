package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kofiasare/storefront/internal/events"
	"github.com/kofiasare/storefront/internal/logging"
)

// publish sends an event to kafka without failing the request; a broker
// outage must not break checkout or catalog writes.
func publish(c echo.Context, p *events.Producer, topic, key string, event map[string]interface{}) {
	if !p.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "topic", topic, "error", err)
	}
}
