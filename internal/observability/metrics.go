package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem is the process-wide telemetry system. Nil until
	// InitMetrics runs; every emitter nil-checks it so CLI paths that skip
	// metrics stay silent.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint on its own port.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts the Prometheus exporter on the given port (0 picks a
// random free port) and wires the telemetry system to it.
func InitMetrics(namespace string, port int) error {
	if port < 0 {
		port = 0
	}
	metricsPort = port

	PrometheusExporter = exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", port))
	if err := PrometheusExporter.Start(); err != nil {
		return err
	}

	if actualPort, err := resolvePort(PrometheusExporter.GetAddr()); err == nil {
		metricsPort = actualPort
	} else if port == 0 {
		metricsPort = 9090
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: PrometheusExporter,
	})
	if err != nil {
		return err
	}

	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the Prometheus exporter actually bound to.
func GetMetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
