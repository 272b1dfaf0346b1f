package files

import (
	"context"

	"github.com/google/uuid"
)

// GetMetadata returns the public fields of a reservation. State and
// timestamps stay internal.
func (s *Service) GetMetadata(ctx context.Context, id uuid.UUID) (Metadata, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ID:          rec.ID,
		Description: rec.Description,
		Extension:   rec.Extension,
		Tags:        splitTags(rec.Tags),
	}, nil
}

// GetBlob returns the stored payload. A reservation without one is
// reported as ErrNotFound, same as an unknown id.
func (s *Service) GetBlob(ctx context.Context, id uuid.UUID) (Blob, error) {
	return s.store.GetBlob(ctx, id)
}
