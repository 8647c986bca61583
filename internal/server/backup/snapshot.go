// Package backup uploads periodic JSON snapshots of all tenant namespaces to
// an S3-compatible bucket (minio works). It is a safety net on top of the
// local persistence files, not a restore path.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	sc "github.com/Erikmmkarlsson/graphmaster/internal/server/config"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

// Indirection points so tests can stub the AWS SDK.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return client.PutObject(ctx, in)
	}
)

// Snapshotter periodically dumps every provisioned namespace to the bucket.
type Snapshotter struct {
	store    tsdb.Store
	config   *sc.Config
	logger   logging.Logger
	interval time.Duration
	now      func() time.Time
}

func NewSnapshotter(store tsdb.Store, config *sc.Config, logger logging.Logger) *Snapshotter {
	return &Snapshotter{
		store:    store,
		config:   config,
		logger:   logger,
		interval: config.SnapshotInterval,
		now:      time.Now,
	}
}

// Enabled reports whether snapshotting is configured. A non-positive interval
// disables it too; time.NewTicker panics on one.
func (s *Snapshotter) Enabled() bool {
	return s.config.SnapshotBucket != "" && s.interval > 0
}

// Run uploads a snapshot every interval until ctx is cancelled, then uploads
// one final snapshot so shutdown never loses more than the in-flight writes.
func (s *Snapshotter) Run(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// final snapshot with a fresh context, the loop one is dead
			final, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.SnapshotAll(final)
			cancel()
			return
		case <-ticker.C:
			s.SnapshotAll(ctx)
		}
	}
}

// SnapshotAll uploads every namespace once. Per-namespace failures are logged
// and skipped so one bad upload does not starve the rest.
func (s *Snapshotter) SnapshotAll(ctx context.Context) {
	client, err := s.client(ctx)
	if err != nil {
		s.logger.Error(ctx, "snapshot client init failed", "error", err.Error())
		return
	}

	for _, namespace := range s.store.Namespaces() {
		if err := s.snapshotNamespace(ctx, client, namespace); err != nil {
			s.logger.Error(ctx, "namespace snapshot failed",
				"namespace", namespace, "error", err.Error())
			continue
		}
		s.logger.Debug(ctx, "namespace snapshot uploaded", "namespace", namespace)
	}
}

func (s *Snapshotter) snapshotNamespace(ctx context.Context, client *s3.Client, namespace string) error {
	if !tsdb.SafeNamespaceName(namespace) {
		return fmt.Errorf("unsafe namespace name %q", namespace)
	}

	data, err := s.store.Dump(namespace)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	key := s.objectKey(namespace)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.SnapshotBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// objectKey shards snapshots by date so a bucket lifecycle rule can expire
// old days wholesale.
func (s *Snapshotter) objectKey(namespace string) string {
	d := s.now().UTC()
	return fmt.Sprintf("snapshots/%d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), namespace)
}

func (s *Snapshotter) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.SnapshotRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.SnapshotAccessKey,
			s.config.SnapshotSecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.SnapshotBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.SnapshotBaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}
