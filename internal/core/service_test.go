package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"storagecore/internal/blob"
	"storagecore/internal/bus"
	"storagecore/internal/catalog"
	memblob "storagecore/internal/infra/blob/memory"
	memcat "storagecore/internal/infra/persistence/memory"
	"storagecore/pkg/storageapi"
)

type blockPutsRule struct{}

func (blockPutsRule) Name() string { return "block_puts" }

func (blockPutsRule) Evaluate(_ context.Context, _ catalog.TransactionView, changes []catalog.Change) (catalog.Result, error) {
	var res catalog.Result
	for _, c := range changes {
		if c.Operation != "put" {
			continue
		}
		res.Violations = append(res.Violations, catalog.Violation{
			Rule:     "block_puts",
			Severity: catalog.SeverityBlock,
			Key:      c.Record.Key,
		})
	}
	return res, nil
}

func newTestService(opts []Option, rules ...catalog.Rule) (*Service, blob.Store) {
	engine := catalog.NewRulesEngine(rules...)
	store := memblob.New()
	opts = append([]Option{WithFactory(blob.NewFactory())}, opts...)
	return NewService(store, memcat.NewStore(engine), engine, opts...), store
}

func TestPutObjectRecordsAndPublishes(t *testing.T) {
	events := bus.NewMemoryBus()
	svc, _ := newTestService([]Option{WithBus(events)})
	ctx := context.Background()

	sub, err := events.Subscribe(ctx, bus.TopicObjectCreated)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer func() { _ = sub.Close() }()

	record, res, err := svc.PutObject(ctx, "docs/a.txt", strings.NewReader("hello"), blob.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if res.Blocking() {
		t.Fatalf("unexpected violations %+v", res)
	}
	if record.Key != "docs/a.txt" || record.Size != 5 || record.Driver != string(blob.DriverMemory) {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ID == "" {
		t.Fatal("record missing ID")
	}

	select {
	case event := <-sub.C():
		if event.Key != "docs/a.txt" || event.Topic != bus.TopicObjectCreated {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("created event not published")
	}

	records, err := svc.ListRecords(ctx)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || records[0].Key != "docs/a.txt" {
		t.Fatalf("unexpected catalog state %+v", records)
	}
}

func TestPutObjectDuplicate(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, _, err := svc.PutObject(ctx, "k", strings.NewReader("one"), blob.PutOptions{}); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	_, _, err := svc.PutObject(ctx, "k", strings.NewReader("two"), blob.PutOptions{})
	if !errors.Is(err, blob.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPutObjectBlockedCompensatesBackendWrite(t *testing.T) {
	svc, store := newTestService(nil, blockPutsRule{})
	ctx := context.Background()

	_, res, err := svc.PutObject(ctx, "k", strings.NewReader("v"), blob.PutOptions{})
	if err == nil {
		t.Fatal("expected blocked put to error")
	}
	if !res.Blocking() {
		t.Fatalf("expected blocking result, got %+v", res)
	}
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("backend write was not compensated: %v", err)
	}
}

func TestDeleteObject(t *testing.T) {
	events := bus.NewMemoryBus()
	svc, _ := newTestService([]Option{WithBus(events)})
	ctx := context.Background()

	sub, _ := events.Subscribe(ctx, bus.TopicObjectDeleted)
	defer func() { _ = sub.Close() }()

	if _, _, err := svc.PutObject(ctx, "k", strings.NewReader("v"), blob.PutOptions{}); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	existed, _, err := svc.DeleteObject(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("DeleteObject: existed=%v err=%v", existed, err)
	}

	select {
	case event := <-sub.C():
		if event.Key != "k" {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("deleted event not published")
	}

	records, _ := svc.ListRecords(ctx)
	if len(records) != 0 {
		t.Fatalf("catalog record survived delete: %+v", records)
	}

	existed, _, err = svc.DeleteObject(ctx, "k")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestDeleteObjectToleratesUncataloguedObjects(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()

	// Written outside the service, so no catalog record exists.
	if _, err := store.Put(ctx, "stray", strings.NewReader("v"), blob.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	existed, _, err := svc.DeleteObject(ctx, "stray")
	if err != nil || !existed {
		t.Fatalf("DeleteObject: existed=%v err=%v", existed, err)
	}
}

func TestListObjectsOrdering(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for key, body := range map[string]string{"a": "xxx", "b": "x", "c": "xx"} {
		if _, _, err := svc.PutObject(ctx, key, strings.NewReader(body), blob.PutOptions{}); err != nil {
			t.Fatalf("PutObject %s: %v", key, err)
		}
	}

	infos, err := svc.ListObjects(ctx, "", blob.OrderBySize{})
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(infos) != 3 || infos[0].Key != "b" || infos[1].Key != "c" || infos[2].Key != "a" {
		t.Fatalf("unexpected order %+v", infos)
	}

	infos, err = svc.ListObjects(ctx, "", nil)
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if infos[0].Key != "a" || infos[2].Key != "c" {
		t.Fatalf("nil order must fall back to key order: %+v", infos)
	}
}

func TestPresignObjectUnsupported(t *testing.T) {
	svc, _ := newTestService(nil)
	if _, err := svc.PresignObject(context.Background(), "k", blob.SignedURLOptions{}); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestMirrorSkipsExistingObjects(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("obj/%d", i)
		if _, _, err := svc.PutObject(ctx, key, strings.NewReader("payload"), blob.PutOptions{}); err != nil {
			t.Fatalf("PutObject %s: %v", key, err)
		}
	}

	dst := memblob.New()
	if _, err := dst.Put(ctx, "obj/0", strings.NewReader("already there"), blob.PutOptions{}); err != nil {
		t.Fatalf("seed dst: %v", err)
	}

	copied, err := svc.Mirror(ctx, dst, "obj/", 2)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if copied != 4 {
		t.Fatalf("copied %d objects, want 4", copied)
	}

	infos, err := dst.List(ctx, "obj/")
	if err != nil {
		t.Fatalf("List dst: %v", err)
	}
	if len(infos) != 5 {
		t.Fatalf("dst holds %d objects, want 5", len(infos))
	}

	info, rc, err := dst.Get(ctx, "obj/0")
	if err != nil {
		t.Fatalf("Get dst: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "already there" {
		t.Fatalf("mirror overwrote existing object: %q (size %d)", body, info.Size)
	}
}

func TestInstallPlugin(t *testing.T) {
	svc, _ := newTestService(nil)

	meta, err := svc.InstallPlugin(fakePlugin{name: "fake"})
	if err != nil {
		t.Fatalf("InstallPlugin: %v", err)
	}
	if meta.Name != "fake" || meta.Version != "0.0.1" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(meta.Drivers) != 1 || meta.Drivers[0] != "fake" {
		t.Fatalf("driver not reported: %+v", meta)
	}
	if len(meta.Rules) != 1 || meta.Rules[0] != "fake_rule" {
		t.Fatalf("rule not reported: %+v", meta)
	}

	found := false
	for _, d := range svc.factory.Drivers() {
		if d == blob.Driver("fake") {
			found = true
		}
	}
	if !found {
		t.Fatal("plugin driver not registered with the factory")
	}
	if len(svc.engine.Rules()) != 1 {
		t.Fatal("plugin rule not registered with the engine")
	}

	if _, err := svc.InstallPlugin(fakePlugin{name: "fake"}); err == nil {
		t.Fatal("duplicate install must fail")
	}
	if _, err := svc.InstallPlugin(nil); err == nil {
		t.Fatal("nil plugin must fail")
	}

	plugins := svc.RegisteredPlugins()
	if len(plugins) != 1 || plugins[0].Name != "fake" {
		t.Fatalf("unexpected registered plugins %+v", plugins)
	}
}

// fakePlugin contributes one driver and one rule for install tests.
type fakePlugin struct{ name string }

func (p fakePlugin) Name() string    { return p.name }
func (p fakePlugin) Version() string { return "0.0.1" }

func (p fakePlugin) Register(registry storageapi.Registry) error {
	registry.RegisterRule(fakeAPIRule{})
	return registry.RegisterDriver("fake", func(context.Context, storageapi.Settings) (storageapi.Store, error) {
		return fakeAPIStore{}, nil
	})
}

type fakeAPIRule struct{}

func (fakeAPIRule) Name() string { return "fake_rule" }

func (fakeAPIRule) Evaluate(_ context.Context, change storageapi.Change) []storageapi.Violation {
	if change.Operation == "put" && change.Info.Size > 10 {
		return []storageapi.Violation{{Rule: "fake_rule", Severity: storageapi.SeverityBlock, Key: change.Info.Key}}
	}
	return nil
}

type fakeAPIStore struct{}

func (fakeAPIStore) Driver() storageapi.Driver { return "fake" }

func (fakeAPIStore) Put(_ context.Context, key string, r io.Reader, _ storageapi.PutOptions) (storageapi.Info, error) {
	n, _ := io.Copy(io.Discard, r)
	return storageapi.Info{Key: key, Size: n}, nil
}

func (fakeAPIStore) Get(_ context.Context, key string) (storageapi.Info, io.ReadCloser, error) {
	return storageapi.Info{}, nil, storageapi.ErrNotFound
}

func (fakeAPIStore) Head(_ context.Context, key string) (storageapi.Info, error) {
	return storageapi.Info{}, storageapi.ErrNotFound
}

func (fakeAPIStore) Delete(context.Context, string) (bool, error) { return false, nil }

func (fakeAPIStore) List(context.Context, string) ([]storageapi.Info, error) { return nil, nil }

func (fakeAPIStore) PresignURL(context.Context, string, storageapi.SignedURLOptions) (string, error) {
	return "", storageapi.ErrUnsupported
}
