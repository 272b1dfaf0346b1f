// prometheus.go - Prometheus metrics exporter
package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// PrometheusHandler returns the /metrics handler in Prometheus text format.
func (s *Server) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.metrics.Snapshot()

		var output strings.Builder

		output.WriteString("# HELP slotdrop_info Application version info\n")
		output.WriteString("# TYPE slotdrop_info gauge\n")
		fmt.Fprintf(&output, "slotdrop_info{version=\"%s\",commit=\"%s\"} 1\n\n",
			prometheusLabel(s.cfg.Build.Version), prometheusLabel(s.cfg.Build.Commit))

		writeCounter(&output, "slotdrop_requests_total", "Total number of HTTP requests", snapshot.RequestsTotal)

		output.WriteString("# HELP slotdrop_request_errors_total HTTP responses with an error status\n")
		output.WriteString("# TYPE slotdrop_request_errors_total counter\n")
		fmt.Fprintf(&output, "slotdrop_request_errors_total{class=\"4xx\"} %d\n", snapshot.RequestErrors4xx)
		fmt.Fprintf(&output, "slotdrop_request_errors_total{class=\"5xx\"} %d\n\n", snapshot.RequestErrors5xx)

		writeCounter(&output, "slotdrop_reservations_total", "Total number of upload reservations created", snapshot.ReservationsTotal)
		writeCounter(&output, "slotdrop_metadata_reads_total", "Total number of metadata lookups served", snapshot.MetadataReadsTotal)
		writeCounter(&output, "slotdrop_uploads_total", "Total number of payloads stored", snapshot.UploadsTotal)
		writeCounter(&output, "slotdrop_upload_bytes_total", "Total payload bytes stored", snapshot.UploadBytesTotal)

		output.WriteString("# HELP slotdrop_upload_errors_total Rejected uploads by kind\n")
		output.WriteString("# TYPE slotdrop_upload_errors_total counter\n")
		kinds := make([]string, 0, len(snapshot.UploadErrorsByKind))
		for k := range snapshot.UploadErrorsByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&output, "slotdrop_upload_errors_total{kind=\"%s\"} %d\n", prometheusLabel(k), snapshot.UploadErrorsByKind[k])
		}
		output.WriteString("\n")

		writeCounter(&output, "slotdrop_downloads_total", "Total number of payload downloads", snapshot.DownloadsTotal)
		writeCounter(&output, "slotdrop_download_bytes_total", "Total payload bytes served", snapshot.DownloadBytesTotal)
		writeCounter(&output, "slotdrop_download_errors_total", "Total number of failed downloads", snapshot.DownloadErrorsTotal)

		output.WriteString("# HELP slotdrop_uptime_seconds Application uptime in seconds\n")
		output.WriteString("# TYPE slotdrop_uptime_seconds counter\n")
		fmt.Fprintf(&output, "slotdrop_uptime_seconds %.0f\n", time.Since(s.started).Seconds())

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(output.String()))
	}
}

func writeCounter(b *strings.Builder, name, help string, v int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	fmt.Fprintf(b, "%s %d\n\n", name, v)
}

// Helper function to format label safely for Prometheus
func prometheusLabel(value string) string {
	// Escape quotes and backslashes
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
