// Package files implements the two-phase upload reservation protocol:
// a client reserves a slot by describing the file it will send, uploads the
// payload against that slot within the upload window, and anyone holding the
// id can read the metadata or the payload back.
//
// Expiry is evaluated lazily when an upload is attempted; nothing sweeps
// stale reservations in the background.
//
//	Reserved ──upload within window──▶ Uploaded
//	    │
//	    └──upload after window──▶ Expired
//
// Both Uploaded and Expired are terminal. The schema stores the state as two
// booleans with CHECK constraints rejecting the combinations State cannot
// express.
package files

import (
	"time"

	"slotdrop/internal/config"
	"slotdrop/internal/logging"
)

// Service runs the reservation protocol against a Store.
type Service struct {
	store  Store
	log    *logging.Logger
	limits config.Limits
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now. Tests use it to step over the upload window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service. Zero limits fall back to config.DefaultLimits.
func NewService(store Store, limits config.Limits, log *logging.Logger, opts ...Option) *Service {
	def := config.DefaultLimits()
	if limits.UploadWindow <= 0 {
		limits.UploadWindow = def.UploadWindow
	}
	if limits.MaxTextLength <= 0 {
		limits.MaxTextLength = def.MaxTextLength
	}
	if log == nil {
		log = logging.Nop()
	}

	s := &Service{
		store:  store,
		log:    log,
		limits: limits,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() Store { return s.store }
