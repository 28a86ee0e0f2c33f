// Package metrics exposes session counters in Prometheus format.
package metrics
