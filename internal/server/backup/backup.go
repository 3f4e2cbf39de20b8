// Package backup copies the collection files to S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/config"
)

const keyPrefix = "backups"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// test seams
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig
	newObjectPutter      = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Service struct {
	config *config.Config
	files  []string
	logger logging.Logger
	now    func() time.Time
}

// NewService backs up the users and records files named by cfg.
func NewService(cfg *config.Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		config: cfg,
		files:  []string{cfg.UsersFile(), cfg.RecordsFile()},
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) client(ctx context.Context) (objectPutter, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newObjectPutter(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO and friends serve buckets under the path, not a subdomain
		o.UsePathStyle = true
	}), nil
}

// Run uploads a snapshot of every collection file under
// backups/<UTC timestamp>/ and returns the object keys written. Files that
// do not exist yet are skipped.
func (s *Service) Run(ctx context.Context) ([]string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	stamp := s.now().UTC().Format("20060102T150405Z")
	bucket := s.config.S3Bucket

	var keys []string
	for _, file := range s.files {
		// files are replaced by rename, so a plain read is a complete snapshot
		data, err := os.ReadFile(file)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info(ctx, "skipping missing file", "file", file)
			continue
		}
		if err != nil {
			return keys, fmt.Errorf("%w: %v", common.ErrorIO, err)
		}

		key := path.Join(keyPrefix, stamp, filepath.Base(file))
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return keys, fmt.Errorf("uploading %s: %w", key, err)
		}

		s.logger.Info(ctx, "file uploaded", "bucket", bucket, "key", key, "bytes", len(data))
		keys = append(keys, key)
	}

	return keys, nil
}
