package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

const (
	contentTypePlaylist = "application/vnd.apple.mpegurl"
	contentTypeSegment  = "video/mp2t"
	contentTypeJPEG     = "image/jpeg"
	contentTypeDefault  = "application/octet-stream"

	defaultPublishWorkers = 8
)

// treeFile is one regular file found by walkTree.
type treeFile struct {
	// RelPath is slash separated and relative to the walked root.
	RelPath string
	Open    func() (fs.File, error)
}

// walkTree lists every regular file below the root of fsys, sorted by path.
// Directories are visited with an explicit stack.
func walkTree(fsys fs.FS) ([]treeFile, error) {
	var files []treeFile
	stack := []string{"."}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			p := path.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				stack = append(stack, p)
			case entry.Type().IsRegular():
				files = append(files, treeFile{
					RelPath: p,
					Open:    func() (fs.File, error) { return fsys.Open(p) },
				})
			}
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// publisher uploads a file tree into one bucket.
type publisher struct {
	store   repository.ContentStore
	workers int

	// written counts objects that reached the store.
	written atomic.Int64
}

// publishTree puts every file of fsys at keyFor(relPath). Uploads run in
// parallel; the first failure cancels the rest.
func (p *publisher) publishTree(ctx context.Context, bucket string, fsys fs.FS, keyFor func(string) string) (int, error) {
	files, err := walkTree(fsys)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no files to publish")
	}

	workers := p.workers
	if workers <= 0 {
		workers = defaultPublishWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		g.Go(func() error {
			if err := p.putFile(gctx, bucket, keyFor(f.RelPath), f); err != nil {
				return fmt.Errorf("put %s: %w", f.RelPath, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(files), nil
}

func (p *publisher) putFile(ctx context.Context, bucket, key string, f treeFile) error {
	file, err := f.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if err := p.store.Put(ctx, bucket, key, file, info.Size(), contentTypeFor(key)); err != nil {
		return err
	}
	p.written.Add(1)
	return nil
}

// putLocalFile uploads a single file from disk.
func (p *publisher) putLocalFile(ctx context.Context, bucket, key, filePath string) error {
	if err := p.store.PutFile(ctx, bucket, key, filePath, contentTypeFor(key)); err != nil {
		return err
	}
	p.written.Add(1)
	return nil
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".m3u8":
		return contentTypePlaylist
	case ".ts":
		return contentTypeSegment
	case ".jpg", ".jpeg":
		return contentTypeJPEG
	default:
		return contentTypeDefault
	}
}
