package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// LocalFSDriver stores objects on local disk with directory hashing
type LocalFSDriver struct {
	BaseDir   string
	PublicURL string
}

// NewLocalFSDriver creates a new LocalFSDriver.
// baseDir is where objects will be stored.
// publicURL is the base URL used to generate public links (e.g., /api/v1/files).
func NewLocalFSDriver(baseDir, publicURL string) (*LocalFSDriver, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalFSDriver{BaseDir: baseDir, PublicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// hashedPath keeps the key's directory and spreads the file name over two
// levels, e.g. portfolios/stu-42.json -> portfolios/st/u-/stu-42.json.
func (d *LocalFSDriver) hashedPath(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	dir, name := path.Split(clean)
	if len(name) >= 4 {
		dir = path.Join(dir, name[0:2], name[2:4])
	}
	return filepath.Join(d.BaseDir, filepath.FromSlash(dir), name), nil
}

func (d *LocalFSDriver) Save(_ context.Context, key string, body io.Reader, contentType string) error {
	fullPath, err := d.hashedPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create hashed directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial snapshot
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	// Save metadata sidecar
	if err := os.WriteFile(fullPath+".meta", []byte(contentType), 0o644); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (d *LocalFSDriver) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	fullPath, err := d.hashedPath(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(fullPath + ".meta"); err == nil {
		contentType = string(meta)
	}
	return f, contentType, nil
}

func (d *LocalFSDriver) Delete(_ context.Context, key string) error {
	fullPath, err := d.hashedPath(key)
	if err != nil {
		return err
	}
	os.Remove(fullPath + ".meta") // Ignore error if meta doesn't exist
	err = os.Remove(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// GenerateURL returns the key under PublicURL. The file handler mounted at
// that path streams the object back; expires is ignored.
func (d *LocalFSDriver) GenerateURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if d.PublicURL == "" {
		return key, nil
	}
	return d.PublicURL + "/" + key, nil
}
