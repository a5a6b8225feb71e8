// Package blob stores committed essay images and hands back durable URLs.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Store writes bytes under key and returns a URL the image can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// SubmissionKey namespaces an essay image by class, activity and student.
func SubmissionKey(classID, activityID, studentID, tempID string) string {
	return path.Join("classes", classID, "activities", activityID, "students", studentID, tempID+".jpg")
}

// FSStore keeps blobs on the local filesystem under Root and serves them
// under BaseURL (see Handler).
type FSStore struct {
	root    string
	baseURL string
	logger  *slog.Logger
}

var _ Store = (*FSStore)(nil)

func NewFSStore(root, baseURL string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: abs, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

func (s *FSStore) Root() string { return s.root }

// Put writes data atomically (temp file + rename).
func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", fmt.Errorf("rename blob: %w", err)
	}

	u := s.URL(key)
	s.logger.Debug("blob.put.ok",
		"key", key,
		"bytes", len(data),
		"content_type", contentType,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return u, nil
}

// URL is the public address of key.
func (s *FSStore) URL(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// Handler serves stored blobs read-only, one exact key per request.
// Directories and in-flight uploads are never exposed. Mount it under the
// BaseURL path.
func (s *FSStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		full, err := s.resolve(r.URL.Path)
		if err != nil || strings.HasPrefix(path.Base(r.URL.Path), ".upload-") {
			http.NotFound(w, r)
			return
		}
		f, err := os.Open(full)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	})
}

func (s *FSStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
