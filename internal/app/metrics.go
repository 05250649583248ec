package app

import (
	"log"
	"net/http"

	"github.com/relabs-tech/sailing_computer/internal/metrics"
)

// serveMetrics exposes /metrics on addr in the background. An empty addr
// disables it.
func serveMetrics(addr string, c *metrics.Collector) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()
}
