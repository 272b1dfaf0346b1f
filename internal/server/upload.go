package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"slotdrop/internal/files"
)

// fileField is the multipart field that must carry the payload.
const fileField = "passport"

// multipartOverhead covers boundaries and part headers on top of the
// field and file caps.
const multipartOverhead = 64 << 10

// uploadResp is the JSON response returned after a successful upload.
type uploadResp struct {
	FileID string `json:"fileId"`
}

// uploadForm is what ingestion hands to the service.
type uploadForm struct {
	filename     string
	mimeType     string
	declaredSize int64
	content      []byte
}

// ingestError rejects a request before it reaches the service.
type ingestError struct {
	status int
	msg    string
}

func (e *ingestError) Error() string { return e.msg }

func badRequest(msg string) *ingestError {
	return &ingestError{status: http.StatusBadRequest, msg: msg}
}

func tooLarge(msg string) *ingestError {
	return &ingestError{status: http.StatusRequestEntityTooLarge, msg: msg}
}

// handleUpload handles PUT /file/{fileId}: step 2 of the upload flow.
// The body must be multipart/form-data with the payload in the "passport"
// field and at most one other field. Size caps are enforced here, while
// reading, so an oversized payload never reaches the service.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	limits := s.cfg.Limits
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFileBytes+limits.MaxFieldBytes+multipartOverhead)

	form, err := readUploadForm(r, limits.MaxFileBytes, limits.MaxFieldBytes)
	if err != nil {
		s.metrics.RecordUploadError("ingest")
		var ie *ingestError
		if errors.As(err, &ie) {
			writeError(w, ie.status, ie.msg)
			return
		}
		s.internalError(w, r, err)
		return
	}

	err = s.svc.SubmitUpload(r.Context(), files.UploadInput{
		ID:           id,
		Filename:     form.filename,
		MimeType:     form.mimeType,
		DeclaredSize: form.declaredSize,
		Content:      form.content,
	})
	if err != nil {
		s.metrics.RecordUploadError(uploadErrorKind(err))
		s.failJSON(w, r, err)
		return
	}

	s.metrics.RecordUpload(int64(len(form.content)), time.Since(start))
	writeJSON(w, http.StatusOK, uploadResp{FileID: id.String()})
}

// readUploadForm streams the multipart body part by part, enforcing the
// one-file, one-field shape and the per-part caps.
func readUploadForm(r *http.Request, maxFile, maxField int64) (*uploadForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("Expected a multipart/form-data body")
	}

	var form *uploadForm
	fields := 0

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, partError(err)
		}

		if part.FileName() != "" || part.FormName() == fileField {
			if part.FormName() != fileField {
				_ = part.Close()
				return nil, badRequest(fmt.Sprintf("Unexpected file field %q", part.FormName()))
			}
			if form != nil {
				_ = part.Close()
				return nil, badRequest("Only one file may be uploaded")
			}

			content, err := readCapped(part, maxFile)
			_ = part.Close()
			if err != nil {
				if errors.Is(err, errCapExceeded) {
					return nil, tooLarge("File too large")
				}
				return nil, partError(err)
			}

			form = &uploadForm{
				filename:     part.FileName(),
				mimeType:     part.Header.Get("Content-Type"),
				declaredSize: declaredSize(part),
				content:      content,
			}
			continue
		}

		fields++
		if fields > 1 {
			_ = part.Close()
			return nil, badRequest("Too many form fields")
		}
		_, err = readCapped(part, maxField)
		_ = part.Close()
		if err != nil {
			if errors.Is(err, errCapExceeded) {
				return nil, tooLarge("Form field too large")
			}
			return nil, partError(err)
		}
	}

	if form == nil {
		return nil, badRequest(fmt.Sprintf("Missing file field %q", fileField))
	}
	return form, nil
}

var errCapExceeded = errors.New("size cap exceeded")

// readCapped reads at most max bytes and fails if more are available.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, errCapExceeded
	}
	return b, nil
}

func partError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return tooLarge("Request body too large")
	}
	return badRequest("Malformed multipart body")
}

func declaredSize(part *multipart.Part) int64 {
	n, err := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func uploadErrorKind(err error) string {
	var ierr *files.InputError
	switch {
	case errors.Is(err, files.ErrNotFound):
		return "not_found"
	case errors.Is(err, files.ErrConflict):
		return "conflict"
	case errors.Is(err, files.ErrExpired):
		return "expired"
	case errors.As(err, &ierr):
		return "invalid_input"
	default:
		return "internal"
	}
}
