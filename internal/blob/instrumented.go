package blob

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives operation timings and outcomes. Satisfied by the metrics
// recorders in internal/core; declared here so the wrapper depends on the
// capability, not a concrete implementation.
type Recorder interface {
	ObserveDuration(operation string, d time.Duration)
	IncResult(operation, status string)
}

// InstrumentedStore forwards every call to its delegate Store, recording
// duration, outcome, and a debug log line per operation. It adds no behavior
// of its own beyond observation.
type InstrumentedStore struct {
	delegate Store
	recorder Recorder
	logger   zerolog.Logger
}

// Instrument wraps a store with metrics and logging.
func Instrument(delegate Store, recorder Recorder, logger zerolog.Logger) *InstrumentedStore {
	return &InstrumentedStore{delegate: delegate, recorder: recorder, logger: logger}
}

func (s *InstrumentedStore) Driver() Driver { return s.delegate.Driver() }

func (s *InstrumentedStore) observe(op, key string, start time.Time, err error) {
	d := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.recorder != nil {
		s.recorder.ObserveDuration(op, d)
		s.recorder.IncResult(op, status)
	}
	evt := s.logger.Debug()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.Str("driver", string(s.delegate.Driver())).
		Str("op", op).
		Str("key", key).
		Dur("duration", d).
		Msg("blob operation")
}

func (s *InstrumentedStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	start := time.Now()
	info, err := s.delegate.Put(ctx, key, r, opts)
	s.observe("put", key, start, err)
	return info, err
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	start := time.Now()
	info, rc, err := s.delegate.Get(ctx, key)
	s.observe("get", key, start, err)
	return info, rc, err
}

func (s *InstrumentedStore) Head(ctx context.Context, key string) (Info, error) {
	start := time.Now()
	info, err := s.delegate.Head(ctx, key)
	s.observe("head", key, start, err)
	return info, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.delegate.Delete(ctx, key)
	s.observe("delete", key, start, err)
	return ok, err
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]Info, error) {
	start := time.Now()
	infos, err := s.delegate.List(ctx, prefix)
	s.observe("list", prefix, start, err)
	return infos, err
}

func (s *InstrumentedStore) PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error) {
	start := time.Now()
	u, err := s.delegate.PresignURL(ctx, key, opts)
	s.observe("presign", key, start, err)
	return u, err
}

var _ Store = (*InstrumentedStore)(nil)
