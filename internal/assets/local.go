package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"photodock/internal/services"
)

// LocalStore writes photos beneath a root directory. URLs use publicBase when
// set and file:// URLs otherwise.
type LocalStore struct {
	root       string
	publicBase string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, publicBase string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "open local store", "assets.local_dir is required", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "open local store", abs, err)
	}
	return &LocalStore{root: abs, publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/")}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string { return s.root }

// Upload writes req atomically under a fresh key.
func (s *LocalStore) Upload(ctx context.Context, req UploadRequest) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	if len(req.Content) == 0 {
		return Asset{}, services.Wrap(services.ErrUpload, "assets", "write file", "empty content", nil)
	}
	key := ObjectKey(req)
	target, err := s.resolve(key)
	if err != nil {
		return Asset{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Asset{}, services.Wrap(services.ErrUpload, "assets", "write file", "create directory", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, req.Content, 0o644); err != nil {
		return Asset{}, services.Wrap(services.ErrUpload, "assets", "write file", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return Asset{}, services.Wrap(services.ErrUpload, "assets", "write file", key, err)
	}
	return Asset{URL: s.objectURL(key, target), PublicID: key, Size: int64(len(req.Content))}, nil
}

// Delete removes the file identified by publicID. Missing files are reported
// as services.ErrNotFound.
func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.resolve(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "assets", "remove file", publicID, err)
		}
		return services.Wrap(services.ErrUpload, "assets", "remove file", publicID, err)
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "assets", "resolve key", "public id is required", nil)
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "assets", "resolve key", fmt.Sprintf("key %q escapes asset dir", key), nil)
	}
	return target, nil
}

func (s *LocalStore) objectURL(key, target string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()
}
