// Package core wires storage backends, the object catalog, rules, plugins,
// and eventing into one transactional service.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storagecore/internal/blob"
	"storagecore/internal/bus"
	"storagecore/internal/catalog"
	"storagecore/internal/metrics"
	"storagecore/pkg/storageapi"
)

const defaultMirrorConcurrency = 4

// Service exposes the storage operations backed by a blob store and the
// transactional object catalog.
type Service struct {
	store    blob.Store
	catalog  catalog.PersistentStore
	engine   *catalog.RulesEngine
	factory  *blob.Factory
	events   bus.Bus
	recorder MetricsRecorder
	logger   zerolog.Logger
	plugins  map[string]PluginMetadata
}

// Option configures a Service.
type Option func(*Service)

// WithBus attaches an event bus; object mutations are published to it.
func WithBus(b bus.Bus) Option {
	return func(s *Service) { s.events = b }
}

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithFactory sets the driver factory plugins register into. Defaults to
// blob.DefaultFactory.
func WithFactory(f *blob.Factory) Option {
	return func(s *Service) { s.factory = f }
}

// NewService constructs a service over the supplied blob store and catalog.
func NewService(store blob.Store, cat catalog.PersistentStore, engine *catalog.RulesEngine, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  cat,
		engine:   engine,
		factory:  blob.DefaultFactory,
		recorder: NoopMetricsRecorder{},
		logger:   zerolog.Nop(),
		plugins:  make(map[string]PluginMetadata),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying blob store.
func (s *Service) Store() blob.Store { return s.store }

// SetStore replaces the backend store. Intended for startup wiring, where
// plugin drivers must be installed before the configured backend can open.
func (s *Service) SetStore(store blob.Store) { s.store = store }

// PutObject writes the object to the backend, then records it in the catalog.
// A blocking rule violation aborts and the backend write is compensated.
func (s *Service) PutObject(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (catalog.ObjectRecord, catalog.Result, error) {
	start := time.Now()
	info, err := s.store.Put(ctx, key, r, opts)
	if err != nil {
		s.observe("put_object", start, err)
		return catalog.ObjectRecord{}, catalog.Result{}, err
	}

	record := catalog.ObjectRecord{
		ID:          uuid.NewString(),
		Key:         info.Key,
		Driver:      string(s.store.Driver()),
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
		Metadata:    info.Metadata,
		CreatedAt:   info.LastModified,
	}
	res, err := s.catalog.RunInTransaction(ctx, func(tx catalog.Transaction) error {
		created, err := tx.CreateRecord(record)
		if err != nil {
			return err
		}
		tx.AppendEvent(catalog.EventRecord{
			ID:         uuid.NewString(),
			Operation:  "put",
			Key:        created.Key,
			Driver:     created.Driver,
			OccurredAt: created.CreatedAt,
		})
		return nil
	})
	s.countViolations(res)
	if err != nil {
		// Roll the backend write back so store and catalog stay aligned.
		if _, delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("compensating delete failed")
		}
		s.observe("put_object", start, err)
		return catalog.ObjectRecord{}, res, err
	}

	s.publish(ctx, bus.TopicObjectCreated, bus.Event{
		Topic:      bus.TopicObjectCreated,
		Key:        record.Key,
		Driver:     record.Driver,
		Size:       record.Size,
		OccurredAt: record.CreatedAt,
	})
	s.observe("put_object", start, nil)
	return record, res, nil
}

// GetObject returns object metadata and content from the backend.
func (s *Service) GetObject(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	start := time.Now()
	info, rc, err := s.store.Get(ctx, key)
	s.observe("get_object", start, err)
	return info, rc, err
}

// StatObject returns object metadata without content.
func (s *Service) StatObject(ctx context.Context, key string) (blob.Info, error) {
	start := time.Now()
	info, err := s.store.Head(ctx, key)
	s.observe("stat_object", start, err)
	return info, err
}

// DeleteObject removes the object from the backend and the catalog.
func (s *Service) DeleteObject(ctx context.Context, key string) (bool, catalog.Result, error) {
	start := time.Now()
	existed, err := s.store.Delete(ctx, key)
	if err != nil {
		s.observe("delete_object", start, err)
		return false, catalog.Result{}, err
	}
	if !existed {
		s.observe("delete_object", start, nil)
		return false, catalog.Result{}, nil
	}

	now := time.Now().UTC()
	res, err := s.catalog.RunInTransaction(ctx, func(tx catalog.Transaction) error {
		if err := tx.DeleteRecord(key); err != nil {
			// The backend may hold objects written outside the service.
			var notFound catalog.ErrNotFound
			if errors.As(err, &notFound) {
				return nil
			}
			return err
		}
		tx.AppendEvent(catalog.EventRecord{
			ID:         uuid.NewString(),
			Operation:  "delete",
			Key:        key,
			Driver:     string(s.store.Driver()),
			OccurredAt: now,
		})
		return nil
	})
	s.countViolations(res)
	if err != nil {
		s.observe("delete_object", start, err)
		return true, res, err
	}

	s.publish(ctx, bus.TopicObjectDeleted, bus.Event{
		Topic:      bus.TopicObjectDeleted,
		Key:        key,
		Driver:     string(s.store.Driver()),
		OccurredAt: now,
	})
	s.observe("delete_object", start, nil)
	return true, res, nil
}

// ListObjects lists backend objects under prefix using the given ordering.
func (s *Service) ListObjects(ctx context.Context, prefix string, order blob.ListOrder) ([]blob.Info, error) {
	start := time.Now()
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		s.observe("list_objects", start, err)
		return nil, err
	}
	if order == nil {
		order = blob.OrderByKey{}
	}
	order.Sort(infos)
	s.observe("list_objects", start, nil)
	return infos, nil
}

// ListRecords returns the catalog's view of stored objects.
func (s *Service) ListRecords(ctx context.Context) ([]catalog.ObjectRecord, error) {
	var records []catalog.ObjectRecord
	err := s.catalog.View(ctx, func(view catalog.TransactionView) error {
		records = view.ListRecords()
		return nil
	})
	return records, err
}

// PresignObject generates a pre-signed URL when the backend supports it.
func (s *Service) PresignObject(ctx context.Context, key string, opts blob.SignedURLOptions) (string, error) {
	start := time.Now()
	u, err := s.store.PresignURL(ctx, key, opts)
	s.observe("presign_object", start, err)
	return u, err
}

// Mirror copies every object under prefix from the service's store into dst,
// skipping keys dst already holds. Returns the number of objects copied.
func (s *Service) Mirror(ctx context.Context, dst blob.Store, prefix string, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = defaultMirrorConcurrency
	}
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	copied := make(chan struct{}, len(infos))
	for _, info := range infos {
		g.Go(func() error {
			srcInfo, rc, err := s.store.Get(ctx, info.Key)
			if err != nil {
				return fmt.Errorf("mirror read %s: %w", info.Key, err)
			}
			defer func() { _ = rc.Close() }()
			_, err = dst.Put(ctx, srcInfo.Key, rc, blob.PutOptions{
				ContentType: srcInfo.ContentType,
				Metadata:    srcInfo.Metadata,
			})
			if errors.Is(err, blob.ErrAlreadyExists) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("mirror write %s: %w", srcInfo.Key, err)
			}
			copied <- struct{}{}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return len(copied), err
	}
	return len(copied), nil
}

// InstallPlugin registers a plugin, wiring its drivers into the factory and
// its rules into the active engine.
func (s *Service) InstallPlugin(plugin storageapi.Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}

	for driver, opener := range registry.Drivers() {
		if err := s.factory.Register(driver, opener); err != nil {
			return PluginMetadata{}, err
		}
	}
	for _, rule := range registry.Rules() {
		s.engine.Register(rule)
	}

	meta := metadataFor(plugin, registry)
	s.plugins[plugin.Name()] = meta
	s.logger.Info().Str("plugin", meta.Name).Str("version", meta.Version).Msg("plugin installed")
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	return out
}

func (s *Service) publish(ctx context.Context, topic string, event bus.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.recorder.ObserveDuration(operation, time.Since(start))
	s.recorder.IncResult(operation, status)
}

func (s *Service) countViolations(res catalog.Result) {
	for _, v := range res.Violations {
		metrics.RuleViolationsTotal.WithLabelValues(v.Rule, string(v.Severity)).Inc()
	}
}
