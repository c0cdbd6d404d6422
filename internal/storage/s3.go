// Package storage provides S3-compatible object storage for story snapshots.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/story"
)

// ErrNotConfigured is returned by reads when no endpoint is configured.
var ErrNotConfigured = errors.New("storage: not configured")

const latestKey = "snapshots/latest.json"

// objectAPI is the subset of the S3 client used here.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client wraps an S3-compatible object storage client.
type Client struct {
	s3     objectAPI
	bucket string
}

// Snapshot is one archived story list.
type Snapshot struct {
	Stories []story.Story `json:"stories"`
	Meta    *SnapshotMeta `json:"meta"`
}

// SnapshotMeta records metadata about a stored snapshot.
type SnapshotMeta struct {
	RunID      uuid.UUID `json:"run_id"`
	Prefix     string    `json:"prefix"`
	StartedAt  time.Time `json:"started_at"`
	CapturedAt time.Time `json:"captured_at"`
	Data       string    `json:"data"`
	Stories    int       `json:"stories"`
	Hash       string    `json:"stories_hash_sha256"`
}

// NewClient creates a new S3-compatible storage client. An empty endpoint
// yields an unconfigured client whose writes are no-ops.
func NewClient(ctx context.Context, cfg config.S3Config) (*Client, error) {
	if cfg.Endpoint == "" {
		slog.Warn("S3 endpoint not configured, snapshot storage disabled")
		return &Client{bucket: cfg.Bucket}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &cfg.Endpoint
		o.UsePathStyle = true
	})

	return &Client{
		s3:     client,
		bucket: cfg.Bucket,
	}, nil
}

// Configured returns true if the S3 client has a valid connection configured.
func (c *Client) Configured() bool {
	return c != nil && c.s3 != nil
}

// SnapshotPrefix returns the key prefix for a run's snapshot.
func SnapshotPrefix(runID uuid.UUID, startedAt time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s", startedAt.UTC().Format("2006/01/02"), runID)
}

// StoreSnapshot compresses and uploads a run's stories along with a meta
// document, then points snapshots/latest.json at it. It returns the
// snapshot prefix, or "" when storage is not configured.
func (c *Client) StoreSnapshot(ctx context.Context, runID uuid.UUID, startedAt time.Time, data string, stories []story.Story) (string, error) {
	if !c.Configured() {
		slog.Warn("snapshot storage not configured, skipping upload", "run", runID)
		return "", nil
	}

	body, err := json.Marshal(stories)
	if err != nil {
		return "", fmt.Errorf("storage: marshal stories: %w", err)
	}

	prefix := SnapshotPrefix(runID, startedAt)
	meta := SnapshotMeta{
		RunID:      runID,
		Prefix:     prefix,
		StartedAt:  startedAt.UTC(),
		CapturedAt: time.Now().UTC(),
		Data:       data,
		Stories:    len(stories),
		Hash:       sha256sum(body),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: marshal meta: %w", err)
	}

	compressed, err := gzipCompress(body)
	if err != nil {
		return "", fmt.Errorf("storage: compress stories: %w", err)
	}

	// Meta is not compressed; latest.json goes last so it never points at a
	// partial upload.
	uploads := []struct {
		key  string
		body []byte
	}{
		{prefix + "/stories.json.gz", compressed},
		{prefix + "/meta.json", metaJSON},
		{latestKey, metaJSON},
	}
	for _, u := range uploads {
		if err := c.putObject(ctx, u.key, u.body); err != nil {
			return "", err
		}
		slog.Debug("snapshot uploaded", "key", u.key, "size", len(u.body))
	}

	return prefix, nil
}

// GetSnapshot retrieves a snapshot by prefix. The prefix "latest" resolves
// through snapshots/latest.json. The stories hash is verified against the
// meta document.
func (c *Client) GetSnapshot(ctx context.Context, prefix string) (*Snapshot, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	metaKey := prefix + "/meta.json"
	if prefix == "latest" {
		metaKey = latestKey
	}

	metaData, err := c.getObject(ctx, metaKey)
	if err != nil {
		return nil, err
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("storage: unmarshal meta: %w", err)
	}

	gz, err := c.getObject(ctx, meta.Prefix+"/stories.json.gz")
	if err != nil {
		return nil, err
	}
	body, err := gzipDecompress(gz)
	if err != nil {
		return nil, fmt.Errorf("storage: decompress stories: %w", err)
	}
	if meta.Hash != "" && sha256sum(body) != meta.Hash {
		return nil, fmt.Errorf("storage: snapshot %s: hash mismatch", meta.Prefix)
	}

	snap := &Snapshot{Meta: &meta}
	if err := json.Unmarshal(body, &snap.Stories); err != nil {
		return nil, fmt.Errorf("storage: unmarshal stories: %w", err)
	}
	return snap, nil
}

func (c *Client) putObject(ctx context.Context, key string, body []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return nil
}

func (c *Client) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
