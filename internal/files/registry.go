package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateReservation validates the request, stores a new Reserved record and
// returns its id. Problems with description and extension are reported
// together in a *ValidationError.
func (s *Service) CreateReservation(ctx context.Context, in ReservationInput) (uuid.UUID, error) {
	var msgs []string

	description, ok := requiredText(in.Description, s.limits.MaxTextLength)
	if !ok {
		msgs = append(msgs, "Missing description")
	}
	extension, ok := requiredText(in.Extension, s.limits.MaxTextLength)
	if !ok {
		msgs = append(msgs, "Missing expected extension")
	}
	if len(msgs) > 0 {
		return uuid.Nil, &ValidationError{Messages: msgs}
	}

	rec := UploadRecord{
		ID:          uuid.New(),
		CreatedAt:   s.now().UTC(),
		State:       StateReserved,
		Description: description,
		Extension:   extension,
		Tags:        canonicalTags(in.Tags),
	}
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("create reservation: %w", err)
	}

	s.log.WithContext(ctx).Info("reservation created", map[string]any{
		"file_id":   rec.ID.String(),
		"extension": rec.Extension,
	})
	return rec.ID, nil
}

// GetReservation returns the full record, including its state.
func (s *Service) GetReservation(ctx context.Context, id uuid.UUID) (UploadRecord, error) {
	return s.store.GetRecord(ctx, id)
}

// MarkExpired flags the record as expired. Repeated calls are no-ops.
func (s *Service) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkExpired(ctx, id)
}

func requiredText(v *string, max int) (string, bool) {
	if v == nil {
		return "", false
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return "", false
	}
	return truncateRunes(t, max), true
}
