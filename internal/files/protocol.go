package files

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// SubmitUpload attaches a payload to a reservation.
//
// Size caps are the caller's job: Content must already be within the
// configured maximum. An attempt after the upload window persists the expiry
// even though the submission itself fails.
func (s *Service) SubmitUpload(ctx context.Context, in UploadInput) error {
	log := s.log.WithContext(ctx)

	rec, err := s.store.GetRecord(ctx, in.ID)
	if err != nil {
		return err
	}

	if rec.IsUploaded() {
		return ErrConflict
	}

	now := s.now().UTC()
	if rec.IsExpired() || now.Sub(rec.CreatedAt) > s.limits.UploadWindow {
		if err := s.store.MarkExpired(ctx, rec.ID); err != nil {
			return fmt.Errorf("mark expired: %w", err)
		}
		log.Info("upload window elapsed", map[string]any{
			"file_id":    rec.ID.String(),
			"created_at": rec.CreatedAt,
		})
		return ErrExpired
	}

	if in.Filename == "" {
		return &InputError{Msg: "Missing filename!"}
	}
	if got := extensionOf(in.Filename); got != rec.Extension {
		return &InputError{Msg: fmt.Sprintf(
			"Filename does not match expected extension. Expected a .%s file, got .%s!",
			rec.Extension, got)}
	}

	size := int64(len(in.Content))
	if in.DeclaredSize >= 0 && in.DeclaredSize != size {
		log.Warn("declared size differs from payload", map[string]any{
			"file_id":  rec.ID.String(),
			"declared": in.DeclaredSize,
			"actual":   size,
		})
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(in.Content)
	}

	blob := Blob{
		OwnerID:  rec.ID,
		Content:  in.Content,
		Size:     size,
		MimeType: mimeType,
	}
	if err := s.store.CompleteUpload(ctx, blob, now); err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return err
		}
		return fmt.Errorf("complete upload: %w", err)
	}

	log.Info("upload stored", map[string]any{
		"file_id":   rec.ID.String(),
		"size":      size,
		"mime_type": mimeType,
	})
	return nil
}
