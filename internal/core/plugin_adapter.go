package core

import (
	"context"
	"errors"
	"io"

	"storagecore/internal/blob"
	"storagecore/internal/blob/core"
	"storagecore/internal/catalog"
	"storagecore/pkg/storageapi"
)

// adaptOpener bridges a plugin opener onto the internal factory signature.
func adaptOpener(opener storageapi.Opener) blob.Opener {
	return func(ctx context.Context, s blob.Settings) (blob.Store, error) {
		store, err := opener(ctx, storageapi.Settings{Token: s.Token, Extra: s.Extra})
		if err != nil {
			return nil, err
		}
		return &storeAdapter{inner: store}, nil
	}
}

// storeAdapter exposes a storageapi.Store as a core.Store, translating types
// and sentinel errors in both directions.
type storeAdapter struct {
	inner storageapi.Store
}

func (a *storeAdapter) Driver() core.Driver { return core.Driver(a.inner.Driver()) }

func (a *storeAdapter) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	info, err := a.inner.Put(ctx, key, r, storageapi.PutOptions{ContentType: opts.ContentType, Metadata: opts.Metadata})
	return infoFromAPI(info), adaptError(err)
}

func (a *storeAdapter) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	info, rc, err := a.inner.Get(ctx, key)
	return infoFromAPI(info), rc, adaptError(err)
}

func (a *storeAdapter) Head(ctx context.Context, key string) (core.Info, error) {
	info, err := a.inner.Head(ctx, key)
	return infoFromAPI(info), adaptError(err)
}

func (a *storeAdapter) Delete(ctx context.Context, key string) (bool, error) {
	ok, err := a.inner.Delete(ctx, key)
	return ok, adaptError(err)
}

func (a *storeAdapter) List(ctx context.Context, prefix string) ([]core.Info, error) {
	infos, err := a.inner.List(ctx, prefix)
	if err != nil {
		return nil, adaptError(err)
	}
	out := make([]core.Info, 0, len(infos))
	for _, info := range infos {
		out = append(out, infoFromAPI(info))
	}
	return out, nil
}

func (a *storeAdapter) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	u, err := a.inner.PresignURL(ctx, key, storageapi.SignedURLOptions{Method: opts.Method, Expiry: opts.Expiry, Headers: opts.Headers})
	return u, adaptError(err)
}

var _ core.Store = (*storeAdapter)(nil)

func infoFromAPI(in storageapi.Info) core.Info {
	return core.Info{
		Key:          in.Key,
		Size:         in.Size,
		ContentType:  in.ContentType,
		ETag:         in.ETag,
		Metadata:     in.Metadata,
		LastModified: in.LastModified,
		URL:          in.URL,
	}
}

func adaptError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storageapi.ErrNotFound):
		return core.ErrNotFound
	case errors.Is(err, storageapi.ErrAlreadyExists):
		return core.ErrAlreadyExists
	case errors.Is(err, storageapi.ErrUnsupported):
		return core.ErrUnsupported
	default:
		return err
	}
}

// adaptRule bridges a per-change plugin rule onto the catalog rule contract.
func adaptRule(rule storageapi.Rule) catalog.Rule {
	return &ruleAdapter{inner: rule}
}

type ruleAdapter struct {
	inner storageapi.Rule
}

func (a *ruleAdapter) Name() string { return a.inner.Name() }

func (a *ruleAdapter) Evaluate(ctx context.Context, _ catalog.TransactionView, changes []catalog.Change) (catalog.Result, error) {
	var result catalog.Result
	for _, change := range changes {
		viols := a.inner.Evaluate(ctx, storageapi.Change{
			Operation: change.Operation,
			Info: storageapi.Info{
				Key:          change.Record.Key,
				Size:         change.Record.Size,
				ContentType:  change.Record.ContentType,
				ETag:         change.Record.ETag,
				Metadata:     change.Record.Metadata,
				LastModified: change.Record.CreatedAt,
			},
		})
		for _, v := range viols {
			result.Violations = append(result.Violations, catalog.Violation{
				Rule:     v.Rule,
				Severity: catalog.Severity(v.Severity),
				Message:  v.Message,
				Key:      v.Key,
			})
		}
	}
	return result, nil
}
