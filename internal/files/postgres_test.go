package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotdrop/internal/db"
)

var metaColumns = []string{
	"guid", "created_at", "uploaded_at", "is_file_uploaded", "is_meta_expired", "description", "extension", "tags",
}

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewPostgresStore(db.NewReadyConn(sqlDB)), mock
}

func TestPostgresStore_Ready(t *testing.T) {
	s, _ := newStoreWithMock(t)
	select {
	case <-s.Ready():
	default:
		t.Fatal("store over a ready conn must be ready")
	}
}

func TestPostgresStore_CreateRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+file_meta\s*\(guid, created_at, description, extension, tags\)`).
		WithArgs(id, created, "scan", "txt", "a,b").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateRecord(context.Background(), UploadRecord{
		ID: id, CreatedAt: created, Description: "scan", Extension: "txt", Tags: strp("a,b"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRecordNullTags(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT\s+INTO\s+file_meta`).
		WithArgs(id, created, "scan", "txt", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateRecord(context.Background(), UploadRecord{ID: id, CreatedAt: created, Description: "scan", Extension: "txt"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRecordDuplicate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+file_meta`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateRecord(context.Background(), UploadRecord{ID: uuid.New(), Description: "d", Extension: "e"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestPostgresStore_GetRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	uploaded := created.Add(10 * time.Second)

	mock.ExpectQuery(`(?s)SELECT\s+guid,.*FROM\s+file_meta\s+WHERE\s+guid\s*=`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(metaColumns).
			AddRow(id.String(), created, uploaded, true, false, "scan", "txt", "a,b"))

	rec, err := s.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, StateUploaded, rec.State)
	require.NotNil(t, rec.UploadedAt)
	assert.True(t, uploaded.Equal(*rec.UploadedAt))
	require.NotNil(t, rec.Tags)
	assert.Equal(t, "a,b", *rec.Tags)
	assert.Equal(t, "scan", rec.Description)
	assert.Equal(t, "txt", rec.Extension)
}

func TestPostgresStore_GetRecordReservedNulls(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM\s+file_meta`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(metaColumns).
			AddRow(id.String(), time.Now(), nil, false, false, "scan", "txt", nil))

	rec, err := s.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateReserved, rec.State)
	assert.Nil(t, rec.UploadedAt)
	assert.Nil(t, rec.Tags)
}

func TestPostgresStore_GetRecordNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM\s+file_meta`).WithArgs(id).WillReturnRows(sqlmock.NewRows(metaColumns))

	_, err := s.GetRecord(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetRecordCorruptFlags(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM\s+file_meta`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(metaColumns).
			AddRow(id.String(), time.Now(), time.Now(), true, true, "scan", "txt", nil))

	_, err := s.GetRecord(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_MarkExpired(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE\s+file_meta\s+SET\s+is_meta_expired\s*=\s*TRUE\s+WHERE\s+guid\s*=\s*\$1\s+AND\s+NOT\s+is_file_uploaded`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkExpired(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteUploadCommits(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	content := []byte("payload")

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)SELECT\s+is_file_uploaded,\s*is_meta_expired\s+FROM\s+file_meta.*FOR\s+UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_file_uploaded", "is_meta_expired"}).AddRow(false, false))
	mock.ExpectExec(`INSERT\s+INTO\s+file_data`).
		WithArgs(id, content, int64(len(content)), "text/plain").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+file_meta\s+SET\s+is_file_uploaded\s*=\s*TRUE,\s*uploaded_at\s*=\s*\$2`).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.CompleteUpload(context.Background(), Blob{
		OwnerID: id, Content: content, Size: int64(len(content)), MimeType: "text/plain",
	}, at)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteUploadLockedStates(t *testing.T) {
	tests := []struct {
		name     string
		uploaded bool
		expired  bool
		want     error
	}{
		{name: "already uploaded", uploaded: true, want: ErrConflict},
		{name: "expired", expired: true, want: ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newStoreWithMock(t)
			id := uuid.New()

			mock.ExpectBegin()
			mock.ExpectQuery(`FOR\s+UPDATE`).
				WithArgs(id).
				WillReturnRows(sqlmock.NewRows([]string{"is_file_uploaded", "is_meta_expired"}).AddRow(tt.uploaded, tt.expired))
			mock.ExpectRollback()

			err := s.CompleteUpload(context.Background(), Blob{OwnerID: id, Content: []byte("x"), Size: 1}, time.Now())
			require.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_CompleteUploadMissingRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_file_uploaded", "is_meta_expired"}))
	mock.ExpectRollback()

	err := s.CompleteUpload(context.Background(), Blob{OwnerID: id}, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_CompleteUploadDuplicateBlob(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_file_uploaded", "is_meta_expired"}).AddRow(false, false))
	mock.ExpectExec(`INSERT\s+INTO\s+file_data`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "file_data_pkey"})
	mock.ExpectRollback()

	err := s.CompleteUpload(context.Background(), Blob{OwnerID: id, Content: []byte("x"), Size: 1}, time.Now())
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteUploadRollsBackOnUpdateFailure(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_file_uploaded", "is_meta_expired"}).AddRow(false, false))
	mock.ExpectExec(`INSERT\s+INTO\s+file_data`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+file_meta`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CompleteUpload(context.Background(), Blob{OwnerID: id, Content: []byte("x"), Size: 1}, time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBlob(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT\s+file,\s*file_size,\s*mime_type\s+FROM\s+file_data\s+WHERE\s+meta_guid\s*=`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"file", "file_size", "mime_type"}).AddRow([]byte("abc"), int64(3), "text/plain"))

	b, err := s.GetBlob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, b.OwnerID)
	assert.Equal(t, []byte("abc"), b.Content)
	assert.Equal(t, int64(3), b.Size)
	assert.Equal(t, "text/plain", b.MimeType)
}

func TestPostgresStore_GetBlobNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM\s+file_data`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"file", "file_size", "mime_type"}))

	_, err := s.GetBlob(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_WaitsForConn(t *testing.T) {
	s := NewPostgresStore(db.NewConn())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.GetRecord(ctx, uuid.New())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
