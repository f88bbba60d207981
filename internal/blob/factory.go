package blob

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Settings carries driver-agnostic construction parameters. Driver-specific
// fields are read by the opener registered for that driver.
type Settings struct {
	FSRoot string // directory root when driver=fs

	S3Bucket    string
	S3Region    string
	S3Endpoint  string // optional, for MinIO
	S3PathStyle bool

	Token string // bearer credential for API-backed drivers

	// Extra holds driver-specific options contributed by plugins
	// (e.g. github repository coordinates).
	Extra map[string]string
}

// Opener constructs a Store for one driver from shared settings.
type Opener func(ctx context.Context, s Settings) (Store, error)

// Factory maps driver names to openers. Drivers register themselves, so
// adding a backend never requires touching the factory. The zero value is
// not usable; construct with NewFactory.
type Factory struct {
	mu      sync.RWMutex
	openers map[Driver]Opener
}

// NewFactory returns a factory pre-seeded with the built-in drivers.
func NewFactory() *Factory {
	f := &Factory{openers: make(map[Driver]Opener, len(builtins))}
	for d, o := range builtins {
		f.openers[d] = o
	}
	return f
}

// Register makes a driver available to Open. Registering an already present
// driver is an error.
func (f *Factory) Register(driver Driver, opener Opener) error {
	if driver == "" || opener == nil {
		return fmt.Errorf("driver and opener required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.openers[driver]; exists {
		return fmt.Errorf("driver %s already registered", driver)
	}
	f.openers[driver] = opener
	return nil
}

// Drivers returns registered driver names sorted.
func (f *Factory) Drivers() []Driver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Driver, 0, len(f.openers))
	for d := range f.openers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Open selects a registered Store implementation by driver name. When driver
// is empty the STORAGECORE_BLOB_DRIVER environment variable is consulted,
// defaulting to fs.
func (f *Factory) Open(ctx context.Context, driver Driver, s Settings) (Store, error) {
	if driver == "" {
		driver = Driver(os.Getenv("STORAGECORE_BLOB_DRIVER"))
	}
	if driver == "" {
		driver = DriverFilesystem
	}
	f.mu.RLock()
	opener, ok := f.openers[driver]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
	return opener(ctx, s)
}

// DefaultFactory is the process-wide factory used by the package-level
// helpers. Plugins installed through the core service register here unless
// the service was built with its own factory.
var DefaultFactory = NewFactory()

// Register registers a driver with the default factory.
func Register(driver Driver, opener Opener) error {
	return DefaultFactory.Register(driver, opener)
}

// Drivers lists the default factory's drivers.
func Drivers() []Driver { return DefaultFactory.Drivers() }

// Open opens a store from the default factory.
func Open(ctx context.Context, driver Driver, s Settings) (Store, error) {
	return DefaultFactory.Open(ctx, driver, s)
}
