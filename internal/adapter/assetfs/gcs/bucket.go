// Package gcs serves the audio asset tree from a Cloud Storage bucket laid
// out as <prefix>/<category>/<filename>.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

const (
	listTimeout = 30 * time.Second
	ioTimeout   = 2 * time.Minute
)

// Bucket implements the asset filesystem on top of a GCS bucket.
type Bucket struct {
	client *storage.Client
	bucket string
	prefix string
}

// Options configures the storage client.
type Options struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// New creates a storage client and returns a Bucket. Without a credentials
// file the client uses application default credentials.
func New(ctx context.Context, opts Options) (*Bucket, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, domain.NewValidationError("bucket", "required")
	}

	clientOpts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *storage.Client, bucket, prefix string) *Bucket {
	return &Bucket{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Close releases the underlying client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

// ListFiles returns audio object names directly under the category, sorted.
func (b *Bucket) ListFiles(ctx context.Context, category string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	dir := b.key(category, "") + "/"
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: dir, Delimiter: "/"})

	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", category, err)
		}
		// Synthetic directory entries only carry Prefix.
		if attrs.Name == "" {
			continue
		}
		name := strings.TrimPrefix(attrs.Name, dir)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		if domain.HasAudioExtension(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile downloads one object.
func (b *Bucket) ReadFile(ctx context.Context, category, filename string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(b.key(category, filename)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("read %s/%s: %w", category, filename, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s/%s: %w", category, filename, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", category, filename, err)
	}
	return data, nil
}

// ReadHead downloads at most n leading bytes of one object.
func (b *Bucket) ReadHead(ctx context.Context, category, filename string, n int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	r, err := b.client.Bucket(b.bucket).Object(b.key(category, filename)).NewRangeReader(ctx, 0, n)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("read %s/%s: %w", category, filename, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s/%s: %w", category, filename, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", category, filename, err)
	}
	return data, nil
}

// CopyFile copies an object into another category. The copy is conditional
// on the destination not existing.
func (b *Bucket) CopyFile(ctx context.Context, srcCategory, filename, dstCategory string) error {
	ctx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	bkt := b.client.Bucket(b.bucket)
	src := bkt.Object(b.key(srcCategory, filename))
	dst := bkt.Object(b.key(dstCategory, filename)).If(storage.Conditions{DoesNotExist: true})

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		var gerr *googleapi.Error
		switch {
		case errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed:
			return fmt.Errorf("copy %s/%s: %w", dstCategory, filename, domain.ErrAlreadyExists)
		case errors.Is(err, storage.ErrObjectNotExist), errors.As(err, &gerr) && gerr.Code == http.StatusNotFound:
			return fmt.Errorf("copy %s/%s: %w", srcCategory, filename, domain.ErrNotFound)
		}
		return fmt.Errorf("copy %s/%s -> %s: %w", srcCategory, filename, dstCategory, err)
	}
	return nil
}

func (b *Bucket) key(category, filename string) string {
	parts := make([]string, 0, 3)
	if b.prefix != "" {
		parts = append(parts, b.prefix)
	}
	parts = append(parts, category)
	if filename != "" {
		parts = append(parts, filename)
	}
	return path.Join(parts...)
}
