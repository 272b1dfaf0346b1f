package server

import (
	"sync"
	"time"
)

// Metrics holds application counters for one Server.
type Metrics struct {
	mu sync.RWMutex

	// Reservation metrics
	reservationsTotal  int64
	metadataReadsTotal int64

	// Upload metrics
	uploadsTotal        int64
	uploadBytesTotal    int64
	uploadDurationTotal time.Duration
	uploadErrors        map[string]int64 // by kind

	// Download metrics
	downloadsTotal        int64
	downloadBytesTotal    int64
	downloadErrorsTotal   int64
	downloadDurationTotal time.Duration

	// System metrics
	requestsTotal    int64
	requestErrors5xx int64
	requestErrors4xx int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{uploadErrors: make(map[string]int64)}
}

// RecordReservation records a created reservation
func (m *Metrics) RecordReservation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservationsTotal++
}

// RecordMetadataRead records a served metadata lookup
func (m *Metrics) RecordMetadataRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadataReadsTotal++
}

// RecordUpload records a successful upload
func (m *Metrics) RecordUpload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
	m.uploadDurationTotal += duration
}

// RecordUploadError records a rejected upload by kind
// (ingest, not_found, conflict, expired, invalid_input, internal).
func (m *Metrics) RecordUploadError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrors[kind]++
}

// RecordDownload records a successful download
func (m *Metrics) RecordDownload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
	m.downloadDurationTotal += duration
}

// RecordDownloadError records a download error
func (m *Metrics) RecordDownloadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadErrorsTotal++
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errs := make(map[string]int64, len(m.uploadErrors))
	var errTotal int64
	for k, v := range m.uploadErrors {
		errs[k] = v
		errTotal += v
	}

	return MetricsSnapshot{
		ReservationsTotal:     m.reservationsTotal,
		MetadataReadsTotal:    m.metadataReadsTotal,
		UploadsTotal:          m.uploadsTotal,
		UploadBytesTotal:      m.uploadBytesTotal,
		UploadErrorsTotal:     errTotal,
		UploadErrorsByKind:    errs,
		UploadAvgDurationMs:   avgDuration(m.uploadDurationTotal, m.uploadsTotal),
		DownloadsTotal:        m.downloadsTotal,
		DownloadBytesTotal:    m.downloadBytesTotal,
		DownloadErrorsTotal:   m.downloadErrorsTotal,
		DownloadAvgDurationMs: avgDuration(m.downloadDurationTotal, m.downloadsTotal),
		RequestsTotal:         m.requestsTotal,
		RequestErrors5xx:      m.requestErrors5xx,
		RequestErrors4xx:      m.requestErrors4xx,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	ReservationsTotal  int64 `json:"reservations_total"`
	MetadataReadsTotal int64 `json:"metadata_reads_total"`

	// Upload metrics
	UploadsTotal        int64            `json:"uploads_total"`
	UploadBytesTotal    int64            `json:"upload_bytes_total"`
	UploadErrorsTotal   int64            `json:"upload_errors_total"`
	UploadErrorsByKind  map[string]int64 `json:"upload_errors_by_kind"`
	UploadAvgDurationMs float64          `json:"upload_avg_duration_ms"`

	// Download metrics
	DownloadsTotal        int64   `json:"downloads_total"`
	DownloadBytesTotal    int64   `json:"download_bytes_total"`
	DownloadErrorsTotal   int64   `json:"download_errors_total"`
	DownloadAvgDurationMs float64 `json:"download_avg_duration_ms"`

	// System metrics
	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
}

func avgDuration(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(count)
}
