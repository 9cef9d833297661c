package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Playa/core/audio"
	"Playa/logger"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Progress reports a running scan.
type Progress struct {
	Directories int `json:"directories"`
	Scanned     int `json:"scanned"`
	Tracks      int `json:"tracks"`
}

type directory struct {
	path  string
	files []string
}

// Scan walks every root, reads the tags of supported files and replaces the
// index with the result. Files without tags or without a title are skipped.
// report, if set, is called after each directory, never concurrently.
func (l *Library) Scan(ctx context.Context, report func(Progress)) (Index, error) {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()

	started := time.Now()
	dirs, totalSize, err := l.collect(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		index    = make(Index)
		progress = Progress{Directories: len(dirs)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for _, dir := range dirs {
		g.Go(func() error {
			found, err := l.scanDirectory(gctx, dir)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for hash, meta := range found {
				index[hash] = meta
			}
			progress.Scanned++
			progress.Tracks = len(index)
			if report != nil {
				report(progress)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("library scanned",
		logger.Int("directories", len(dirs)),
		logger.Int("tracks", len(index)),
		logger.String("size", humanize.Bytes(uint64(totalSize))),
		logger.Int64("bytes", totalSize),
		logger.Duration("took", time.Since(started)))

	if err := l.Replace(ctx, index); err != nil {
		return index, err
	}
	return index, nil
}

// collect groups the supported files under the roots by directory.
func (l *Library) collect(ctx context.Context) ([]directory, int64, error) {
	var (
		dirs      []directory
		byPath    = make(map[string]int)
		totalSize int64
	)

	for _, root := range l.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root && errors.Is(err, os.ErrNotExist) {
					logger.Warn("library root does not exist", logger.String("root", root))
					return filepath.SkipDir
				}
				logger.Warn("skipping unreadable path", logger.String("path", path), logger.ErrorField(err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !audio.IsSupported(path) {
				return nil
			}

			if info, err := d.Info(); err == nil {
				totalSize += info.Size()
			}

			dir := filepath.Dir(path)
			i, ok := byPath[dir]
			if !ok {
				i = len(dirs)
				byPath[dir] = i
				dirs = append(dirs, directory{path: dir})
			}
			dirs[i].files = append(dirs[i].files, path)
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return dirs, totalSize, nil
}

func (l *Library) scanDirectory(ctx context.Context, dir directory) (Index, error) {
	found := make(Index)
	for _, path := range dir.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := l.extractor.Extract(path)
		if err != nil {
			logger.Debug("skipping file without tags", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		if !meta.HasTags() || meta.Title == "" {
			continue
		}
		found[EncodePath(path)] = *meta
	}
	return found, nil
}
