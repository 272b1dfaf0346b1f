// Package server implements the HTTP surface of slotdrop. It wires the
// reservation routes (served at /file and mirrored under /api/file) to a
// files.Service, enforces multipart ingestion caps, maps service errors to
// status codes, and exposes health, readiness and Prometheus endpoints.
package server
