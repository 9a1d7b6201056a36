// Package publish uploads a synthesized index tree to an S3-compatible
// object store. It is a deliberately separate step: index synthesis never
// talks to the store, it only produces the file tree this package ships.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures an upload run.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // optional key prefix inside the bucket
	UseSSL    bool
	SiteDir   string // synthesized tree to upload
}

// Result summarizes an upload run.
type Result struct {
	Uploaded int
	Bytes    int64
}

// Publisher uploads index trees.
type Publisher struct {
	client *minio.Client
	opts   Options
}

// NewPublisher validates options and creates the object-store client.
func NewPublisher(opts Options) (*Publisher, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("publish endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("publish bucket is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("publish credentials are required (WHEELHOUSE_ACCESS_KEY / WHEELHOUSE_SECRET_KEY)")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &Publisher{client: client, opts: opts}, nil
}

// Sync uploads every file under SiteDir, keyed by its path relative to the
// tree root. Existing objects are overwritten, matching the synthesizer's
// overwrite-unconditionally semantics.
func (p *Publisher) Sync(ctx context.Context) (*Result, error) {
	exists, err := p.client.BucketExists(ctx, p.opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", p.opts.Bucket)
	}

	result := &Result{}
	err = filepath.WalkDir(p.opts.SiteDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(p.opts.SiteDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if p.opts.Prefix != "" {
			key = strings.TrimSuffix(p.opts.Prefix, "/") + "/" + key
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		info, err := p.client.FPutObject(ctx, p.opts.Bucket, key, path, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}

		result.Uploaded++
		result.Bytes += info.Size
		slog.Debug("Uploaded object", "key", key, "bytes", info.Size)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Publish complete", "bucket", p.opts.Bucket, "objects", result.Uploaded, "bytes", result.Bytes)
	return result, nil
}
