package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Category scopes artifacts by origin.
type Category string

const (
	CategoryUploads   Category = "uploads"
	CategoryGenerated Category = "generated"
)

var categories = []Category{CategoryUploads, CategoryGenerated}

var (
	// ErrInvalidReference is returned for references outside the store's prefix or categories.
	ErrInvalidReference = errors.New("storage: invalid reference")
	// ErrNotExist is returned by Read when the artifact is absent.
	ErrNotExist = errors.New("storage: artifact does not exist")
)

// Options tunes a FileStore.
type Options struct {
	// Prefix is the public path the references are served under, e.g. "/static".
	Prefix string
	// CacheTTL enables an in-memory read cache when positive.
	CacheTTL time.Duration
}

// FileStore persists artifacts onto the local filesystem. References look like
// "<prefix>/<category>/<name>" and map onto "<basePath>/<category>/<name>".
// Files are created exclusively and never overwritten.
type FileStore struct {
	basePath string
	prefix   string
	cache    *cache.Cache
	reads    singleflight.Group

	// cacheMu orders cache fills after a read against Delete, so a read that
	// raced a delete never caches the removed bytes.
	cacheMu   sync.Mutex
	afterRead func(fullPath string)
}

// NewFileStore initializes a FileStore rooted at basePath and creates every
// category directory up front.
func NewFileStore(basePath string, opts Options) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if !filepath.IsAbs(basePath) {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}
	for _, c := range categories {
		if err := os.MkdirAll(filepath.Join(basePath, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure %s directory: %w", c, err)
		}
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	if prefix == "/" {
		prefix = "/static"
	}
	s := &FileStore{basePath: basePath, prefix: prefix}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Prefix returns the public path prefix of issued references.
func (s *FileStore) Prefix() string {
	if s == nil {
		return ""
	}
	return s.prefix
}

// Store writes data under a fresh random name in the category and returns its
// reference. ext may be given with or without the leading dot.
func (s *FileStore) Store(ctx context.Context, category Category, data []byte, ext string) (string, error) {
	name := uuid.NewString() + normalizeExt(ext)
	if category == CategoryGenerated {
		name = "gen_" + name
	}
	return s.write(ctx, category, name, data)
}

func (s *FileStore) write(ctx context.Context, category Category, name string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validCategory(category) {
		return "", fmt.Errorf("storage: unknown category %q", category)
	}
	key, err := sanitizeKey(path.Join(string(category), name))
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return s.prefix + "/" + key, nil
}

// Read returns the bytes behind a reference.
func (s *FileStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(fullPath); ok {
			if data, ok := v.([]byte); ok {
				return data, nil
			}
		}
	}
	v, err, _ := s.reads.Do(fullPath, func() (any, error) {
		data, err := os.ReadFile(fullPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotExist, ref)
			}
			return nil, fmt.Errorf("storage: read file: %w", err)
		}
		if s.afterRead != nil {
			s.afterRead(fullPath)
		}
		s.fill(fullPath, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Delete removes the artifact behind ref. Missing files are not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cache != nil {
		s.cache.Delete(fullPath)
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

// fill caches data unless the file was removed while it was being read.
func (s *FileStore) fill(fullPath string, data []byte) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if _, err := os.Stat(fullPath); err != nil {
		return
	}
	s.cache.SetDefault(fullPath, data)
}

// Owns reports whether ref was issued by this store.
func (s *FileStore) Owns(ref string) bool {
	_, err := s.resolve(ref)
	return err == nil
}

func (s *FileStore) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	rest, ok := strings.CutPrefix(ref, s.prefix+"/")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	key, err := sanitizeKey(rest)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	category, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || strings.Contains(name, "/") || !validCategory(Category(category)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

func validCategory(c Category) bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if strings.ContainsAny(ext[1:], "./\\") {
		return ""
	}
	return ext
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
