// Package metrics observes committed segments. Recorder exports them to
// Prometheus; the summary metrics condense an offline run into single values.
package metrics
