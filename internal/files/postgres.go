package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"slotdrop/internal/db"
)

// PostgresStore keeps reservations in file_meta and payloads in file_data.
type PostgresStore struct {
	conn *db.Conn
}

func NewPostgresStore(conn *db.Conn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

func (s *PostgresStore) Ready() <-chan struct{} { return s.conn.Ready() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) CreateRecord(ctx context.Context, rec UploadRecord) error {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return err
	}

	var tags sql.NullString
	if rec.Tags != nil {
		tags = sql.NullString{String: *rec.Tags, Valid: true}
	}

	_, err = sqlDB.ExecContext(ctx, `
		INSERT INTO file_meta (guid, created_at, description, extension, tags)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.CreatedAt, rec.Description, rec.Extension, tags)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert file_meta: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id uuid.UUID) (UploadRecord, error) {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return UploadRecord{}, err
	}

	var rec UploadRecord
	var uploadedAt sql.NullTime
	var tags sql.NullString
	var uploaded, expired bool
	err = sqlDB.QueryRowContext(ctx, `
		SELECT guid, created_at, uploaded_at, is_file_uploaded, is_meta_expired, description, extension, tags
		FROM file_meta
		WHERE guid = $1
	`, id).Scan(&rec.ID, &rec.CreatedAt, &uploadedAt, &uploaded, &expired, &rec.Description, &rec.Extension, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return UploadRecord{}, ErrNotFound
	}
	if err != nil {
		return UploadRecord{}, fmt.Errorf("select file_meta: %w", err)
	}

	state, ok := StateFromFlags(uploaded, expired)
	if !ok {
		return UploadRecord{}, fmt.Errorf("file_meta %s: uploaded and expired both set", id)
	}
	rec.State = state
	if uploadedAt.Valid {
		t := uploadedAt.Time
		rec.UploadedAt = &t
	}
	if tags.Valid {
		t := tags.String
		rec.Tags = &t
	}
	return rec, nil
}

func (s *PostgresStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return err
	}

	_, err = sqlDB.ExecContext(ctx, `
		UPDATE file_meta SET is_meta_expired = TRUE
		WHERE guid = $1 AND NOT is_file_uploaded
	`, id)
	if err != nil {
		return fmt.Errorf("update file_meta: %w", err)
	}
	return nil
}

// CompleteUpload locks the reservation row, re-checks its state, then
// inserts the payload and flips the record in one transaction. A racing
// submission either blocks on the row lock and sees Uploaded, or trips the
// file_data primary key at insert time; both surface as ErrConflict.
func (s *PostgresStore) CompleteUpload(ctx context.Context, blob Blob, uploadedAt time.Time) error {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, sqlDB, nil, func(ctx context.Context, tx db.DBTX) error {
		var uploaded, expired bool
		err := tx.QueryRowContext(ctx, `
			SELECT is_file_uploaded, is_meta_expired
			FROM file_meta
			WHERE guid = $1
			FOR UPDATE
		`, blob.OwnerID).Scan(&uploaded, &expired)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock file_meta: %w", err)
		}
		if uploaded {
			return ErrConflict
		}
		if expired {
			return ErrExpired
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO file_data (meta_guid, file, file_size, mime_type)
			VALUES ($1, $2, $3, $4)
		`, blob.OwnerID, blob.Content, blob.Size, blob.MimeType); err != nil {
			return fmt.Errorf("insert file_data: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE file_meta SET is_file_uploaded = TRUE, uploaded_at = $2
			WHERE guid = $1
		`, blob.OwnerID, uploadedAt); err != nil {
			return fmt.Errorf("update file_meta: %w", err)
		}
		return nil
	})
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *PostgresStore) GetBlob(ctx context.Context, id uuid.UUID) (Blob, error) {
	sqlDB, err := s.conn.Wait(ctx)
	if err != nil {
		return Blob{}, err
	}

	b := Blob{OwnerID: id}
	err = sqlDB.QueryRowContext(ctx, `
		SELECT file, file_size, mime_type
		FROM file_data
		WHERE meta_guid = $1
	`, id).Scan(&b.Content, &b.Size, &b.MimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("select file_data: %w", err)
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
