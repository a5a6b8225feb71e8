package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionKey(t *testing.T) {
	assert.Equal(t,
		"classes/c1/activities/a1/students/s1/tmp-1.jpg",
		SubmissionKey("c1", "a1", "s1", "tmp-1"))
}

func TestFSStore_PutAndServe(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "http://localhost:9090/blobs/", nil)
	require.NoError(t, err)

	key := SubmissionKey("c1", "a1", "s 1", "tmp-1")
	u, err := s.Put(context.Background(), key, []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090/blobs/classes/c1/activities/a1/students/s%201/tmp-1.jpg", u)

	got, err := os.ReadFile(filepath.Join(root, "classes", "c1", "activities", "a1", "students", "s 1", "tmp-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(got))

	entries, err := os.ReadDir(filepath.Join(root, "classes", "c1", "activities", "a1", "students", "s 1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	srv := httptest.NewServer(http.StripPrefix("/blobs", s.Handler()))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/blobs/classes/c1/activities/a1/students/s%201/tmp-1.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg-bytes", string(body))
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://x", nil)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../../etc/passwd", []byte("x"), "text/plain")
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "", []byte("x"), "text/plain")
	assert.Error(t, err)
}

func TestFSStore_CanceledContext(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://x", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Put(ctx, "a/b.jpg", []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSStore_HandlerServesExactKeysOnly(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "http://x/blobs", nil)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), SubmissionKey("c1", "a1", "s1", "t1"), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "classes", ".upload-123"), []byte("partial"), 0o600))

	h := http.StripPrefix("/blobs", s.Handler())
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/blobs/classes/c1/activities/a1/students/s1/t1.jpg", http.StatusOK},
		{http.MethodHead, "/blobs/classes/c1/activities/a1/students/s1/t1.jpg", http.StatusOK},
		{http.MethodGet, "/blobs/", http.StatusNotFound},
		{http.MethodGet, "/blobs/classes/", http.StatusNotFound},
		{http.MethodGet, "/blobs/classes/c1/activities/a1/students/s1", http.StatusNotFound},
		{http.MethodGet, "/blobs/classes/.upload-123", http.StatusNotFound},
		{http.MethodGet, "/blobs/classes/c1/missing.jpg", http.StatusNotFound},
		{http.MethodPut, "/blobs/classes/c1/activities/a1/students/s1/t1.jpg", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
				assert.NotContains(t, rec.Body.String(), "<a href")
			}
		})
	}
}
