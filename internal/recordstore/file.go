package recordstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps each collection in <dir>/<collection>.txt, one record
// per line. This is the default backend.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir. The directory
// is created on first write, not here, so a read-only startup against a
// missing directory still works.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".txt")
}

// ReadAll returns the non-blank lines of the collection file. A missing
// file is an empty collection, not an error.
func (s *FileStore) ReadAll(_ context.Context, collection string) ([]string, error) {
	data, err := os.ReadFile(s.path(collection))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// WriteAll replaces the collection file. The write goes through a temp
// file and rename so a crash mid-write cannot truncate the collection.
func (s *FileStore) WriteAll(_ context.Context, collection string, lines []string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}

	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	return nil
}
