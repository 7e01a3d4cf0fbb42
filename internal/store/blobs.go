package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is content-addressed body storage on the filesystem. Blobs live
// under dir/{first two hex chars}/{sha256 hex}, so identical bodies are
// stored once.
type BlobStore struct {
	dir string
}

// NewBlobStore creates dir if needed and returns a store rooted there.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blobs directory: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Put stores data and returns its id. Existing blobs are not rewritten.
func (bs *BlobStore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	path := bs.path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", id, err)
	}
	return id, nil
}

// Get reads a blob and verifies it still hashes to id.
func (bs *BlobStore) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(bs.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != id {
		return nil, fmt.Errorf("blob integrity check failed: expected %s, got %s", id, got)
	}
	return data, nil
}

// Exists reports whether a blob with id is present.
func (bs *BlobStore) Exists(id string) bool {
	_, err := os.Stat(bs.path(id))
	return err == nil
}

// Delete removes a blob. Missing blobs are not an error.
func (bs *BlobStore) Delete(id string) error {
	if err := os.Remove(bs.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

func (bs *BlobStore) path(id string) string {
	// SHA-256 hex ids are 64 chars; anything shorter lands somewhere no real
	// blob can live.
	if len(id) < 2 {
		return filepath.Join(bs.dir, "__invalid__", id)
	}
	return filepath.Join(bs.dir, id[:2], filepath.Base(id))
}

// atomicWriteFile writes through a temp file in the target directory and
// renames it into place, so readers never see a partial blob.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}
