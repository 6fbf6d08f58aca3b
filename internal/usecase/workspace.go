package usecase

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

const inputBaseName = "input"

// workspace is the scratch directory of one ingestion attempt.
type workspace struct {
	dir string
}

// newWorkspace creates a fresh directory under baseDir. An empty baseDir
// uses the system temp directory.
func newWorkspace(baseDir string, assetID uuid.UUID) (*workspace, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("create temp base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(baseDir, "mediagate-"+assetID.String()+"-")
	if err != nil {
		return nil, fmt.Errorf("mkdir temp: %w", err)
	}
	ws := &workspace{dir: dir}
	if err := os.MkdirAll(ws.hlsDir(), 0755); err != nil {
		_ = ws.remove()
		return nil, fmt.Errorf("create hls directory: %w", err)
	}
	return ws, nil
}

func (w *workspace) hlsDir() string {
	return filepath.Join(w.dir, model.CategoryHLS)
}

func (w *workspace) thumbnailPath() string {
	return filepath.Join(w.dir, model.ThumbnailFile)
}

// writeInput copies the upload into the workspace and returns its path.
// More than limit bytes fails with ErrFileTooLarge; limit <= 0 disables the check.
func (w *workspace) writeInput(r io.Reader, filename string, limit int64) (string, error) {
	inputPath := filepath.Join(w.dir, inputBaseName+inputExt(filename))

	file, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("create input file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(file, src)
	if err != nil {
		_ = file.Close()
		return "", fmt.Errorf("copy upload: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close input file: %w", err)
	}
	if limit > 0 && n > limit {
		return "", ErrFileTooLarge
	}
	if n == 0 {
		return "", ErrMissingFile
	}
	return inputPath, nil
}

func (w *workspace) remove() error {
	return os.RemoveAll(w.dir)
}

// inputExt keeps a short alphanumeric extension of the client file name.
func inputExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
