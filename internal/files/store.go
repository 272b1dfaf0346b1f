package files

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists reservations and their payloads.
//
// CompleteUpload must insert the blob and flip the record to uploaded
// atomically, and must return ErrConflict when another submission won.
type Store interface {
	// Ready is closed once the store can serve requests.
	Ready() <-chan struct{}
	Ping(ctx context.Context) error

	CreateRecord(ctx context.Context, rec UploadRecord) error
	GetRecord(ctx context.Context, id uuid.UUID) (UploadRecord, error)
	// MarkExpired is idempotent and never touches an uploaded record.
	MarkExpired(ctx context.Context, id uuid.UUID) error
	CompleteUpload(ctx context.Context, blob Blob, uploadedAt time.Time) error
	GetBlob(ctx context.Context, id uuid.UUID) (Blob, error)
}
