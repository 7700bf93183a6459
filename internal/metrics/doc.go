// Package metrics records pipeline run metrics.
//
// Components receive a Recorder. NoopRecorder is the default and does
// nothing; PrometheusRecorder collects into a registry that can be written
// out as a node-exporter style textfile at the end of a run:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	// ... run the pipeline with rec ...
//	_ = rec.WriteTextfile("/var/lib/node_exporter/postpress.prom")
package metrics
