package artifact

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	uptime "store-monitor/internal/uptime/domain"
)

// FSStore keeps artifacts as <report_id>.csv files in one directory.
type FSStore struct {
	dir string
}

// NewFSStore creates dir when missing.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("artifact: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Save writes rows to a temp file and renames it into place, so readers
// never see a partial artifact.
func (s *FSStore) Save(ctx context.Context, reportID string, rows []uptime.ReportRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := FileName(reportID)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+reportID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	buf := bufio.NewWriter(tmp)
	if err := WriteCSV(buf, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("artifact: publish %s: %w", name, err)
	}
	return nil
}

// Open returns the artifact file or uptime.ErrArtifactNotFound.
func (s *FSStore) Open(ctx context.Context, reportID string) (io.ReadCloser, error) {
	_ = ctx
	name, err := FileName(reportID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, uptime.ErrArtifactNotFound
		}
		return nil, err
	}
	return f, nil
}
