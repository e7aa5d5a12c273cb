package main

import (
	"time"

	"github.com/armon/go-metrics"
)

const (
	metricsInterval  = 10 * time.Second
	metricsRetention = time.Minute
)

// SetupMetrics installs the global go-metrics registry backed by an in-memory
// sink that the API server exposes on /metrics.
func SetupMetrics(name string) (*metrics.InmemSink, error) {
	sink := metrics.NewInmemSink(metricsInterval, metricsRetention)
	cfg := metrics.DefaultConfig("wordfreq")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	if name != "" {
		cfg.HostName = name
		cfg.EnableHostnameLabel = true
	}
	if _, err := metrics.NewGlobal(cfg, sink); err != nil {
		return nil, err
	}
	return sink, nil
}
