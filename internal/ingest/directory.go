// Package ingest loads essay scans from a local directory for batch intake.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/snapcheck/constants"
	"github.com/joseph-ayodele/snapcheck/internal/entity"
)

// DefaultMaxFileBytes skips phone exports that are clearly not single pages.
const DefaultMaxFileBytes = 32 << 20

type FileResult struct {
	Path string
	Size int64
	Err  string
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

type Options struct {
	IncludeExts  []string // defaults to constants.AllowedImageExtensions
	SkipHidden   bool
	MaxFileBytes int64
}

// LoadDirectory walks root in lexical order and reads every image file whose
// extension is allowed. Unreadable or oversized files are reported per file
// and do not stop the walk.
func LoadDirectory(ctx context.Context, root string, opts Options) ([]entity.Image, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	exts := extSet(opts.IncludeExts)

	var (
		images  []entity.Image
		results []FileResult
		stats   DirStats
	)
	fail := func(path string, size int64, err error) {
		results = append(results, FileResult{Path: path, Size: size, Err: err.Error()})
		stats.Failed++
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			fail(path, 0, walkErr)
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		info, err := d.Info()
		if err != nil {
			fail(path, 0, err)
			return nil
		}
		if info.Size() > opts.MaxFileBytes {
			fail(path, info.Size(), fmt.Errorf("file is %d bytes, limit %d", info.Size(), opts.MaxFileBytes))
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fail(path, info.Size(), err)
			return nil
		}
		images = append(images, entity.Image{
			Filename:    filepath.Base(path),
			ContentType: constants.ContentTypeForExt(ext),
			Data:        data,
		})
		results = append(results, FileResult{Path: path, Size: info.Size()})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return images, results, stats, fmt.Errorf("walk: %w", err)
	}
	return images, results, stats, nil
}

func extSet(include []string) map[string]struct{} {
	if len(include) == 0 {
		return constants.AllowedImageExtensions
	}
	exts := map[string]struct{}{}
	for _, e := range include {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			exts[e] = struct{}{}
		}
	}
	return exts
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
