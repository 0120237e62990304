package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape handler for the collector's registry. The
// control server mounts it at telemetry.metrics.path. Scrapes themselves are
// counted in promhttp_metric_handler_requests_total.
func (c *Collector) Handler() http.Handler {
	c.scrapeOnce.Do(func() {
		c.scrape = promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(
			c.registry,
			promhttp.HandlerOpts{
				Registry:          c.registry,
				EnableOpenMetrics: true,
				ErrorHandling:     promhttp.ContinueOnError,
			},
		))
	})
	return c.scrape
}
