package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	sc "github.com/Erikmmkarlsson/graphmaster/internal/server/config"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

func testSnapshotter(t *testing.T) (*Snapshotter, *tsdb.MemStore) {
	t.Helper()
	store := tsdb.NewMemStore(nil, nil)

	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.SnapshotBucket = "graphmaster-backups"
	cfg.SnapshotAccessKey = "minio"
	cfg.SnapshotSecretKey = "minio123"

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewSnapshotter(store, cfg, logger)
	s.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func stubClient(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.New(s3.Options{})
	}
}

func TestSnapshotAllUploadsEveryNamespace(t *testing.T) {
	s, store := testSnapshotter(t)
	stubClient(t)

	require.NoError(t, store.Provision("alice"))
	require.NoError(t, store.Provision("bob"))

	handle, err := store.Namespace("alice")
	require.NoError(t, err)
	require.NoError(t, handle.Write([]models.Point{
		{Measurement: "cpu", Fields: map[string]any{"load": 0.5}},
	}))

	var uploads []s3.PutObjectInput
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		uploads = append(uploads, *in)
		return &s3.PutObjectOutput{}, nil
	}

	s.SnapshotAll(context.Background())

	require.Len(t, uploads, 2)
	assert.Equal(t, "graphmaster-backups", aws.ToString(uploads[0].Bucket))
	assert.Equal(t, "snapshots/2025/03/14/alice.json", aws.ToString(uploads[0].Key))
	assert.Equal(t, "snapshots/2025/03/14/bob.json", aws.ToString(uploads[1].Key))

	body, err := io.ReadAll(uploads[0].Body)
	require.NoError(t, err)
	var dump map[string][]models.Point
	require.NoError(t, json.Unmarshal(body, &dump))
	require.Len(t, dump["cpu"], 1)
	assert.Equal(t, 0.5, dump["cpu"][0].Fields["load"])
}

func TestSnapshotAllContinuesPastFailedUpload(t *testing.T) {
	s, store := testSnapshotter(t)
	stubClient(t)

	require.NoError(t, store.Provision("alice"))
	require.NoError(t, store.Provision("bob"))

	var keys []string
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		keys = append(keys, aws.ToString(in.Key))
		if len(keys) == 1 {
			return nil, errors.New("upload refused")
		}
		return &s3.PutObjectOutput{}, nil
	}

	s.SnapshotAll(context.Background())

	// both namespaces attempted despite the first failing
	assert.Len(t, keys, 2)
}

func TestSnapshotterDisabledWithoutBucket(t *testing.T) {
	s, _ := testSnapshotter(t)
	s.config.SnapshotBucket = ""
	assert.False(t, s.Enabled())
}

func TestSnapshotterDisabledWithNonPositiveInterval(t *testing.T) {
	s, _ := testSnapshotter(t)
	s.interval = 0
	assert.False(t, s.Enabled())

	// Run must return instead of panicking in time.NewTicker
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled snapshotter")
	}
}

func TestSnapshotAllSkipsUnsafeNamespaceNames(t *testing.T) {
	s, store := testSnapshotter(t)
	stubClient(t)

	require.NoError(t, store.Provision("../escape"))
	require.NoError(t, store.Provision("alice"))

	var keys []string
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		keys = append(keys, aws.ToString(in.Key))
		return &s3.PutObjectOutput{}, nil
	}

	s.SnapshotAll(context.Background())

	require.Len(t, keys, 1)
	assert.Equal(t, "snapshots/2025/03/14/alice.json", keys[0])
}
