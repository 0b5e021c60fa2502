package files

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalConfig configures the local-directory file service.
type LocalConfig struct {
	// Dir is the storage root.
	Dir string `mapstructure:"dir"`
	// PublicURL, when set, is the base under which Dir is served; download
	// URLs are joins against it. Without it DownloadURL fails.
	PublicURL string `mapstructure:"public_url"`
}

// LocalService stores objects under a directory. It exists for development
// and tests; URIs are file:// paths relative to the root.
type LocalService struct {
	config LocalConfig
}

// NewLocal builds the local file service, creating the root directory.
func NewLocal(config LocalConfig) (*LocalService, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("local storage dir is required")
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalService{config: config}, nil
}

// resolve maps a file:// URI to a path inside the root, rejecting escapes.
func (s *LocalService) resolve(uri string) (string, error) {
	rel, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", fmt.Errorf("not a file uri: %s", uri)
	}
	rel = filepath.Clean("/" + rel)[1:] // strip any traversal
	if rel == "" || rel == "." {
		return "", fmt.Errorf("malformed file uri: %s", uri)
	}
	return filepath.Join(s.config.Dir, rel), nil
}

// Write stores the content under key and returns its file:// URI.
func (s *LocalService) Write(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	uri := "file://" + key
	target, err := s.resolve(uri)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories for %s: %w", key, err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return uri, nil
}

// Read opens the object for streaming.
func (s *LocalService) Read(ctx context.Context, uri string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return f, nil
}

// Exists checks object existence.
func (s *LocalService) Exists(ctx context.Context, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	target, err := s.resolve(uri)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stat returns object metadata. The content type is inferred from the
// extension.
func (s *LocalService) Stat(ctx context.Context, uri string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	target, err := s.resolve(uri)
	if err != nil {
		return Info{}, err
	}

	fi, err := os.Stat(target)
	if os.IsNotExist(err) {
		return Info{}, fmt.Errorf("%s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return Info{}, err
	}

	return Info{
		Size:        fi.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(target)),
	}, nil
}

// Delete removes the object; missing objects are fine.
func (s *LocalService) Delete(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(uri)
	if err != nil {
		return err
	}

	err = os.Remove(target)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DownloadURL joins the key onto the public base URL.
func (s *LocalService) DownloadURL(_ context.Context, uri string) (string, error) {
	if s.config.PublicURL == "" {
		return "", fmt.Errorf("local storage has no public url configured")
	}
	rel, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return "", fmt.Errorf("not a file uri: %s", uri)
	}
	return strings.TrimSuffix(s.config.PublicURL, "/") + "/" + rel, nil
}
