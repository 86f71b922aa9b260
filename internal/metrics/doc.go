// Package metrics provides the observability hooks for docsbuild pipelines.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	p := pipeline.New(resolver, executor) // NoopRecorder
//	p = pipeline.New(resolver, executor, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// A build is a finite batch job with nothing to scrape it, so the Prometheus
// recorder is exported with WriteTextfile at the end of the run, in the format
// read by the node_exporter textfile collector.
package metrics
