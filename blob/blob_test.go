package blob

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, opts ...Option) *Storage {
	t.Helper()
	return New(t.TempDir(), opts...)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (s *Storage) pathOf(t *testing.T, u string) string {
	t.Helper()
	_, _, p, err := s.resolve(u)
	require.NoError(t, err)
	return p
}

func TestUploadWritesDecodedBytes(t *testing.T) {
	s := newTestStorage(t)
	data := pngBytes(t, 3, 2)

	res := s.Upload(dataURL("image/png", data), FolderBlog)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Regexp(t, regexp.MustCompile(`^blog_\d+_[a-z0-9]{9}\.png$`), res.Filename)
	assert.Equal(t, "/storage/blog/"+res.Filename, res.URL)

	got, err := os.ReadFile(s.pathOf(t, res.URL))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUploadAcceptedFormats(t *testing.T) {
	s := newTestStorage(t)
	payload := []byte("not really an image but bytes are bytes")

	tests := []struct {
		mime string
		ext  string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"image/jpg", ".jpg"},
		{"image/gif", ".gif"},
		{"image/webp", ".webp"},
		{"image/svg+xml", ".svg"},
		{"image/svg", ".svg"},
	}
	for _, tt := range tests {
		res := s.Upload(dataURL(tt.mime, payload), FolderUploads)
		require.True(t, res.Success, "%s: %s", tt.mime, res.Error)
		assert.True(t, strings.HasSuffix(res.Filename, tt.ext), "%s -> %s", tt.mime, res.Filename)
		st, err := os.Stat(s.pathOf(t, res.URL))
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), st.Size())
	}
}

func TestUploadRejectsBeforeTouchingFilesystem(t *testing.T) {
	s := newTestStorage(t)

	tests := []struct {
		name  string
		input string
		code  ErrorCode
	}{
		{"non-image mime", dataURL("text/plain", []byte("hello")), CodeInvalidFormat},
		{"unsupported image", dataURL("image/tiff", []byte("hello")), CodeInvalidFormat},
		{"not a data url", "https://example.com/a.png", CodeInvalidFormat},
		{"missing base64 marker", "data:image/png,abcd", CodeInvalidFormat},
		{"bad base64", "data:image/png;base64,@@@@", CodeInvalidFormat},
		{"empty payload", "data:image/png;base64,", CodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Upload(tt.input, FolderGallery)
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.Code)
			assert.NotEmpty(t, res.Error)
		})
	}

	_, err := os.Stat(filepath.Join(s.Root(), "gallery"))
	assert.True(t, os.IsNotExist(err), "folder must not be created on rejection")
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestStorage(t)
	big := make([]byte, MaxImageSize+1)

	res := s.Upload(dataURL("image/png", big), FolderTemp)
	assert.False(t, res.Success)
	assert.Equal(t, CodeFileTooLarge, res.Code)

	_, err := os.Stat(filepath.Join(s.Root(), "temp"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadExactlyMaxSize(t *testing.T) {
	s := newTestStorage(t)
	data := make([]byte, MaxImageSize)

	res := s.Upload(dataURL("image/gif", data), FolderTemp)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(MaxImageSize), res.Size)
}

func TestUploadInvalidFolder(t *testing.T) {
	s := newTestStorage(t)
	res := s.Upload(dataURL("image/png", pngBytes(t, 1, 1)), Folder("../etc"))
	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidFolder, res.Code)
}

func TestDeleteImage(t *testing.T) {
	s := newTestStorage(t)
	res := s.Upload(dataURL("image/png", pngBytes(t, 1, 1)), FolderBlog)
	require.True(t, res.Success)

	del := s.Delete(res.URL)
	assert.True(t, del.Success)
	assert.False(t, s.Info(res.URL).Exists)

	again := s.Delete(res.URL)
	assert.False(t, again.Success)
	assert.Equal(t, "File not found", again.Error)
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)
	for _, u := range []string{
		"/storage/../secret",
		"/storage/blog/../../etc/passwd",
		"/storage/private/x.png",
		"/storage/blog/",
		"/uploads/blog/x.png",
		"/storage/blog/a\\b.png",
	} {
		_, _, _, err := s.resolve(u)
		assert.Error(t, err, u)
	}

	folder, name, _, err := s.resolve("https://cdn.example.com/storage/events/ev.png")
	require.NoError(t, err)
	assert.Equal(t, FolderEvents, folder)
	assert.Equal(t, "ev.png", name)
}

func TestInfo(t *testing.T) {
	s := newTestStorage(t)
	data := pngBytes(t, 4, 3)
	res := s.Upload(dataURL("image/png", data), FolderGallery)
	require.True(t, res.Success)

	info := s.Info(res.URL)
	require.True(t, info.Exists)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "image/png", info.MimeType)
	assert.Equal(t, 4, info.Width)
	assert.Equal(t, 3, info.Height)
	assert.NotNil(t, info.ModifiedAt)

	assert.Equal(t, Info{}, s.Info("/storage/gallery/missing.png"))
}

func TestMoveImage(t *testing.T) {
	s := newTestStorage(t)
	res := s.Upload(dataURL("image/png", pngBytes(t, 1, 1)), FolderTemp)
	require.True(t, res.Success)

	mv := s.Move(res.URL, FolderBlog)
	require.True(t, mv.Success, mv.Error)
	assert.Equal(t, res.Filename, mv.Filename)
	assert.Equal(t, "/storage/blog/"+res.Filename, mv.URL)

	assert.True(t, s.Info(mv.URL).Exists)
	assert.False(t, s.Info(res.URL).Exists)

	missing := s.Move(res.URL, FolderBlog)
	assert.False(t, missing.Success)
	assert.Equal(t, "Source file not found", missing.Error)
}

func TestCopyImage(t *testing.T) {
	s := newTestStorage(t)
	data := pngBytes(t, 2, 2)
	res := s.Upload(dataURL("image/png", data), FolderUploads)
	require.True(t, res.Success)

	cp := s.Copy(res.URL, FolderGallery)
	require.True(t, cp.Success, cp.Error)
	assert.NotEqual(t, res.Filename, cp.Filename)
	assert.True(t, strings.HasPrefix(cp.Filename, "gallery_"))

	src := s.Info(res.URL)
	dst := s.Info(cp.URL)
	require.True(t, src.Exists)
	require.True(t, dst.Exists)
	assert.Equal(t, src.Size, dst.Size)

	missing := s.Copy("/storage/uploads/nope.png", FolderGallery)
	assert.False(t, missing.Success)
	assert.Equal(t, "Source file not found", missing.Error)
}

func TestStats(t *testing.T) {
	s := newTestStorage(t)

	empty := s.Stats()
	assert.Equal(t, 0, empty.TotalFiles)
	assert.Len(t, empty.Folders, len(Folders))
	for _, f := range Folders {
		assert.Equal(t, FolderStats{}, empty.Folders[f])
	}

	a := []byte("aaaa")
	b := []byte("bbbbbbbb")
	require.True(t, s.Upload(dataURL("image/png", a), FolderBlog).Success)
	require.True(t, s.Upload(dataURL("image/png", b), FolderBlog).Success)
	require.True(t, s.Upload(dataURL("image/png", a), FolderEvents).Success)

	st := s.Stats()
	assert.Equal(t, FolderStats{Count: 2, Size: 12}, st.Folders[FolderBlog])
	assert.Equal(t, FolderStats{Count: 1, Size: 4}, st.Folders[FolderEvents])
	assert.Equal(t, 3, st.TotalFiles)
	assert.Equal(t, int64(16), st.TotalSize)
}

func TestCleanup(t *testing.T) {
	s := newTestStorage(t)

	res := s.Cleanup(FolderTemp, 7)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Deleted, "missing folder yields zero deletions")

	old := s.Upload(dataURL("image/png", []byte("old")), FolderTemp)
	fresh := s.Upload(dataURL("image/png", []byte("new")), FolderTemp)
	require.True(t, old.Success)
	require.True(t, fresh.Success)

	past := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(s.pathOf(t, old.URL), past, past))

	res = s.Cleanup(FolderTemp, 7)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Deleted)
	assert.False(t, s.Info(old.URL).Exists)
	assert.True(t, s.Info(fresh.URL).Exists)

	bad := s.Cleanup(Folder("nope"), 1)
	assert.False(t, bad.Success)
	assert.Equal(t, CodeInvalidFolder, bad.Code)
}

func TestValidate(t *testing.T) {
	s := newTestStorage(t)
	v := s.Validate()
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)

	require.True(t, s.Upload(dataURL("image/png", []byte("fine")), FolderBlog).Success)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "blog", "empty.png"), nil, 0o644))

	v = s.Validate()
	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 1)
	assert.Contains(t, v.Errors[0], "blog/empty.png")
}

func TestProbe(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Probe(t.Context()))
	st := s.Stats()
	assert.Equal(t, 0, st.Folders[FolderTemp].Count)
}

func TestCleanupScheduler(t *testing.T) {
	now := time.Now()
	s := newTestStorage(t, WithClock(func() time.Time { return now }))
	res := s.Upload(dataURL("image/png", []byte("x")), FolderTemp)
	require.True(t, res.Success)
	past := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(s.pathOf(t, res.URL), past, past))

	stop := s.StartCleanupScheduler(FolderTemp, 1, 10*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return !s.Info(res.URL).Exists
	}, time.Second, 10*time.Millisecond)
}

func TestMetricsRecorded(t *testing.T) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ops"}, []string{"op", "outcome"})
	s := newTestStorage(t, WithMetrics(ops))

	s.Upload(dataURL("image/png", []byte("x")), FolderBlog)
	s.Upload("garbage", FolderBlog)

	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("upload", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("upload", "failure")))
}
