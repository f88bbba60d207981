package blob

import (
	"context"

	"storagecore/internal/infra/blob/fs"
	"storagecore/internal/infra/blob/memory"
	"storagecore/internal/infra/blob/s3"
)

// builtins seeds every new Factory. This file is the only place that may
// import the infra implementations (enforced by architecture tests).
var builtins = map[Driver]Opener{
	DriverFilesystem: func(_ context.Context, s Settings) (Store, error) {
		return fs.New(s.FSRoot)
	},
	DriverMemory: func(context.Context, Settings) (Store, error) {
		return memory.New(), nil
	},
	DriverS3: func(ctx context.Context, s Settings) (Store, error) {
		if s.S3Bucket == "" {
			return s3.OpenFromEnv(ctx)
		}
		return s3.New(ctx, s3.Config{
			Bucket:    s.S3Bucket,
			Region:    s.S3Region,
			Endpoint:  s.S3Endpoint,
			PathStyle: s.S3PathStyle,
		})
	},
}
