package archive

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"chatpulse/internal/pulse"
)

// S3Archive uploads reports to an S3 bucket through the multipart upload
// manager.
type S3Archive struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Archive builds an S3 archive. When accessKey is empty the default AWS
// credential chain is used; otherwise a static credentials provider is
// installed.
func NewS3Archive(ctx context.Context, bucket, prefix, region, accessKey, secretKey string) (*S3Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Archive{
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

// PutReport uploads the report to <prefix>/<name> in the bucket. The size
// argument is unused; the uploader streams the body.
func (a *S3Archive) PutReport(ctx context.Context, name string, body io.Reader, _ int64) error {
	key := path.Join(a.prefix, name)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading report %s: %w", key, err)
	}
	return nil
}

// Compile-time check that S3Archive implements pulse.Archive
var _ pulse.Archive = (*S3Archive)(nil)
