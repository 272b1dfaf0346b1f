package files

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a reservation.
type State int

const (
	// StateReserved: created, waiting for its payload.
	StateReserved State = iota
	// StateUploaded: payload stored. Terminal.
	StateUploaded
	// StateExpired: the upload window passed before a payload arrived. Terminal.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateReserved:
		return "reserved"
	case StateUploaded:
		return "uploaded"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// StateFromFlags maps the persisted flag pair onto a State. Both flags set
// cannot be stored (the schema forbids it) and is reported as !ok.
func StateFromFlags(uploaded, expired bool) (s State, ok bool) {
	switch {
	case uploaded && expired:
		return StateReserved, false
	case uploaded:
		return StateUploaded, true
	case expired:
		return StateExpired, true
	default:
		return StateReserved, true
	}
}

// UploadRecord is a reservation and its metadata.
type UploadRecord struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UploadedAt  *time.Time // nil unless State is StateUploaded
	State       State
	Description string
	Extension   string
	Tags        *string // canonical comma-joined form, nil when absent
}

// IsUploaded reports whether the payload has been stored.
func (r UploadRecord) IsUploaded() bool { return r.State == StateUploaded }

// IsExpired reports whether the record was marked expired.
func (r UploadRecord) IsExpired() bool { return r.State == StateExpired }

// Blob is the payload stored for an uploaded reservation.
type Blob struct {
	OwnerID  uuid.UUID
	Content  []byte
	Size     int64 // always len(Content)
	MimeType string
}

// Metadata is the public view of a reservation.
type Metadata struct {
	ID          uuid.UUID `json:"fileId"`
	Description string    `json:"description"`
	Extension   string    `json:"extension"`
	Tags        []string  `json:"tags"`
}

// ReservationInput carries the raw fields of a reservation request.
// A nil pointer means the field was not supplied.
type ReservationInput struct {
	Description *string
	Extension   *string
	Tags        *string
}

// UploadInput is a payload submission that already passed ingestion caps.
type UploadInput struct {
	ID           uuid.UUID
	Filename     string
	MimeType     string
	DeclaredSize int64 // as reported by the client, -1 if unknown
	Content      []byte
}
