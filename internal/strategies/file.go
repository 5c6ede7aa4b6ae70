package strategies

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/edix/internal/ir"
)

// FileReceiver reads an inbound record's file, named by rec.Filename,
// from a drop directory.
type FileReceiver struct {
	Dir string
}

func (r *FileReceiver) Receive(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	path, err := localPath(r.Dir, rec.Filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file %q not found in %s", rec.Filename, r.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// FileSender writes an outbound record's file into an outbox directory.
type FileSender struct {
	Dir string
}

func (s *FileSender) Send(ctx context.Context, rec *ir.ExchangeRecord) error {
	return writeFile(s.Dir, rec)
}

// FileArchiver copies a received record's file into an archive directory.
type FileArchiver struct {
	Dir string
}

func (a *FileArchiver) Process(ctx context.Context, rec *ir.ExchangeRecord) error {
	return writeFile(a.Dir, rec)
}

// writeFile stores rec.File under dir/rec.Filename through a temp file
// and rename, so readers never see a partial file.
func writeFile(dir string, rec *ir.ExchangeRecord) error {
	if !rec.HasFile() {
		return fmt.Errorf("record %s has no file", rec.ID)
	}
	path, err := localPath(dir, rec.Filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".edix-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(rec.File); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func localPath(dir, name string) (string, error) {
	if name == "" {
		return "", errors.New("record has no filename")
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("filename %q escapes %s", name, dir)
	}
	return filepath.Join(dir, name), nil
}
