// Package blob exposes the object store used for census reports and opens
// the configured backend.
package blob

import (
	"context"
	"fmt"

	"zoocore/internal/blob/core"
	"zoocore/internal/infra/blob/fs"
	"zoocore/internal/infra/blob/memory"
	"zoocore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrInvalidKey  = core.ErrInvalidKey
)

// Config selects and parameterises the blob backend.
type Config struct {
	Driver Driver   `env:"BLOB_DRIVER" envDefault:"fs"`
	FSRoot string   `env:"BLOB_FS_ROOT" envDefault:"./blobdata"`
	S3     S3Config `envPrefix:"BLOB_S3_"`
}

// Open builds the backend named by cfg.Driver; an empty driver selects the
// filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("blob driver s3 requires a bucket")
		}
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
