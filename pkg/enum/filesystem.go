package enum

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// FilesystemEnumerator enumerates text files below a directory, or a single
// file.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// Enumerate walks the tree, then reads the collected files in parallel.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback Callback) error {
	info, err := os.Stat(e.config.Root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", e.config.Root, err)
	}
	if !info.IsDir() {
		// an explicitly named file is checked even when hidden
		if e.tooLarge(info.Size()) {
			return nil
		}
		return e.processFile(ctx, e.config.Root, callback)
	}

	ignore, err := e.loadIgnore()
	if err != nil {
		return err
	}

	files, err := e.collect(ctx, ignore)
	if err != nil {
		return err
	}
	return e.readAll(ctx, files, callback)
}

func (e *FilesystemEnumerator) loadIgnore() (*gitignore.GitIgnore, error) {
	var lines []string
	gitignorePath := filepath.Join(e.config.Root, ".gitignore")
	if data, err := os.ReadFile(gitignorePath); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
	}
	lines = append(lines, e.config.Ignore...)
	if len(lines) == 0 {
		return nil, nil
	}
	return gitignore.CompileIgnoreLines(lines...), nil
}

func (e *FilesystemEnumerator) collect(ctx context.Context, ignore *gitignore.GitIgnore) ([]string, error) {
	var files []string
	err := filepath.WalkDir(e.config.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == e.config.Root {
			return nil
		}

		rel, err := filepath.Rel(e.config.Root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" || (!e.config.IncludeHidden && isHidden(d.Name())) {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.config.IncludeHidden && isHidden(d.Name()) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}

		info, err := e.fileInfo(path, d)
		if err != nil || info == nil {
			return err
		}
		if !info.Mode().IsRegular() || e.tooLarge(info.Size()) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", e.config.Root, err)
	}
	return files, nil
}

// fileInfo resolves symlinks when enabled. A nil info means "skip".
func (e *FilesystemEnumerator) fileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		if !e.config.FollowSymlinks {
			return nil, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			// dangling link
			return nil, nil
		}
		return info, nil
	}
	return d.Info()
}

func (e *FilesystemEnumerator) tooLarge(size int64) bool {
	return e.config.MaxFileSize > 0 && size > e.config.MaxFileSize
}

func (e *FilesystemEnumerator) readAll(ctx context.Context, files []string, callback Callback) error {
	workers := e.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	pathsCh := make(chan string, workers*2)

	g.Go(func() error {
		defer close(pathsCh)
		for _, f := range files {
			select {
			case pathsCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range pathsCh {
				if err := e.processFile(ctx, path, callback); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// workers may all finish before noticing a cancellation
	return origCtx.Err()
}

func (e *FilesystemEnumerator) processFile(ctx context.Context, path string, callback Callback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !isText(content) {
		return nil
	}
	return callback(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: path})
}
