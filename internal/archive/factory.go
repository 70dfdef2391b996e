package archive

import (
	"context"
	"fmt"
	"os"

	"chatpulse/internal/config"
	"chatpulse/internal/pulse"
)

// NewArchiveFromConfig creates an Archive based on the archive config type.
// An empty or "none" type disables archival and returns nil. S3 credentials
// come from CHATPULSE_S3_ACCESS_KEY / CHATPULSE_S3_SECRET_KEY when set,
// otherwise from the default AWS credential chain.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (pulse.Archive, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem archive requires dir to be set")
		}
		return NewFileSystemArchive(cfg.Dir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 archive requires s3_bucket to be set")
		}
		return NewS3Archive(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region,
			os.Getenv("CHATPULSE_S3_ACCESS_KEY"), os.Getenv("CHATPULSE_S3_SECRET_KEY"))
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
