// Package assetfs exposes the audio asset tree as <root>/<category>/<filename>.
package assetfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// FS is a category-partitioned asset store on an afero filesystem.
type FS struct {
	fs   afero.Fs
	root string
}

// New returns an FS rooted at root on the local disk.
func New(root string) *FS {
	return NewWithFs(afero.NewOsFs(), root)
}

// NewWithFs returns an FS rooted at root on fs. Tests pass afero.NewMemMapFs().
func NewWithFs(fs afero.Fs, root string) *FS {
	return &FS{fs: fs, root: filepath.Clean(root)}
}

// ListFiles returns the audio filenames in the category directory, sorted.
// A missing directory yields no files.
func (f *FS) ListFiles(ctx context.Context, category string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := f.dir(category)
	if err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", category, err)
	}

	var out []string
	for _, fi := range infos {
		if !fi.Mode().IsRegular() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		if domain.HasAudioExtension(fi.Name()) {
			out = append(out, fi.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile returns the contents of one asset.
func (f *FS) ReadFile(ctx context.Context, category, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(category, filename)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("read %s/%s: %w", category, filename, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s/%s: %w", category, filename, err)
	}
	return data, nil
}

// ReadHead returns at most n leading bytes of one asset.
func (f *FS) ReadHead(ctx context.Context, category, filename string, n int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(category, filename)
	if err != nil {
		return nil, err
	}

	in, err := f.fs.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("read %s/%s: %w", category, filename, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s/%s: %w", category, filename, err)
	}
	defer in.Close()

	data, err := io.ReadAll(io.LimitReader(in, n))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", category, filename, err)
	}
	return data, nil
}

// CopyFile copies filename from srcCategory into dstCategory, creating the
// destination directory. An existing destination file is never overwritten.
func (f *FS) CopyFile(ctx context.Context, srcCategory, filename, dstCategory string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := f.path(srcCategory, filename)
	if err != nil {
		return err
	}
	dst, err := f.path(dstCategory, filename)
	if err != nil {
		return err
	}

	in, err := f.fs.Open(src)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("copy %s/%s: %w", srcCategory, filename, domain.ErrNotFound)
		}
		return fmt.Errorf("copy %s/%s: %w", srcCategory, filename, err)
	}
	defer in.Close()

	if err := f.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("copy mkdir %s: %w", dstCategory, err)
	}

	out, err := f.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return fmt.Errorf("copy %s/%s: %w", dstCategory, filename, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("copy %s/%s: %w", dstCategory, filename, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = f.fs.Remove(dst)
		return fmt.Errorf("copy %s/%s: %w", dstCategory, filename, err)
	}
	if err := out.Close(); err != nil {
		_ = f.fs.Remove(dst)
		return fmt.Errorf("copy close %s/%s: %w", dstCategory, filename, err)
	}
	return nil
}

func (f *FS) dir(category string) (string, error) {
	if !validSegment(category) {
		return "", domain.NewValidationError("category", "invalid path segment")
	}
	return filepath.Join(f.root, category), nil
}

func (f *FS) path(category, filename string) (string, error) {
	dir, err := f.dir(category)
	if err != nil {
		return "", err
	}
	if !validSegment(filename) {
		return "", domain.NewValidationError("filename", "invalid path segment")
	}
	return filepath.Join(dir, filename), nil
}

// validSegment rejects names that would escape the category directory.
func validSegment(s string) bool {
	if strings.TrimSpace(s) == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "\x00")
}
