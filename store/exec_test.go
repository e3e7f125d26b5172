package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	cfg := Config{
		DSN:        filepath.Join(t.TempDir(), "test.db"),
		Retries:    2,
		RetryDelay: time.Millisecond,
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewIDFormat(t *testing.T) {
	id := NewID(PrefixBlogPost, fixedNow)
	assert.Regexp(t, regexp.MustCompile(`^bp_\d+_[a-z0-9]{9}$`), id)
	assert.Contains(t, id, "_1741944413000_")
	assert.NotEqual(t, id, NewID(PrefixBlogPost, fixedNow))
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	assert.Equal(t, q, rebind(DialectSQLite, q))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", rebind(DialectPostgres, q))
	assert.Equal(t, "SELECT 1", rebind(DialectPostgres, "SELECT 1"))
}

func TestPatchUpdateSQL(t *testing.T) {
	title := Bilingual{EN: "  Hello ", FA: "سلام"}
	featured := true
	u := PostUpdate{Title: &title, Featured: &featured}
	p := u.patch()

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"title_en", "title_fa", "featured"}, p.Columns())

	q, args := p.updateSQL("blog_posts", "bp_1", "ts")
	assert.Equal(t, "UPDATE blog_posts SET title_en = ?, title_fa = ?, featured = ?, updated_at = ? WHERE id = ?", q)
	assert.Equal(t, []any{"Hello", "سلام", 1, "ts", "bp_1"}, args)
}

func TestPatchEmptyStillTouchesUpdatedAt(t *testing.T) {
	var p Patch
	q, args := p.updateSQL("events", "ev_1", "ts")
	assert.Equal(t, "UPDATE events SET updated_at = ? WHERE id = ?", q)
	assert.Equal(t, []any{"ts", "ev_1"}, args)
}

func TestBlogPostFromRowMalformedImages(t *testing.T) {
	for _, raw := range []string{"", "not json", "{}", "null"} {
		p := blogPostFromRow(blogPostRow{ID: "bp_1", Images: raw})
		assert.NotNil(t, p.Images, raw)
		assert.Empty(t, p.Images, raw)
	}

	p := blogPostFromRow(blogPostRow{Images: `["/storage/blog/a.png","https://x/b.jpg"]`})
	assert.Equal(t, []string{"/storage/blog/a.png", "https://x/b.jpg"}, p.Images)
}

func TestRowMappersOptionalBilingual(t *testing.T) {
	p := blogPostFromRow(blogPostRow{ContentEN: "", ContentFA: "", AuthorEN: "A", AuthorFA: "ب", Featured: 1})
	assert.Nil(t, p.Content)
	require.NotNil(t, p.Author)
	assert.Equal(t, "ب", p.Author.FA)
	assert.True(t, p.Featured)

	g := galleryImageFromRow(galleryImageRow{DisplayOrder: 3, IsActive: 0, CreatedAt: "2025-03-14T09:26:53.000Z"})
	assert.Nil(t, g.Description)
	assert.Equal(t, 3, g.Order)
	assert.False(t, g.IsActive)
	assert.True(t, g.CreatedAt.Equal(fixedNow))

	e := eventFromRow(eventRow{Type: "warning", StartDate: "2025-03-14", ClickCount: 7})
	assert.Equal(t, EventWarning, e.Type)
	assert.Equal(t, int64(7), e.ClickCount)
	assert.Equal(t, 2025, e.StartDate.Year())
}

func TestExecutorRetriesTransientErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	var attempts []int
	e := s.Executor().WithRetries(2)
	e.onRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_, err := e.Exec(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestExecutorDoesNotRetryMissingTable(t *testing.T) {
	retried := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_retries_total"})
	s := newTestStore(t, WithRetryCounter(retried))

	calls := 0
	e := s.Executor().WithRetries(3)
	e.onRetry = func(int, error) { calls++ }

	_, err := e.Query(context.Background(), "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
	assert.Zero(t, calls)
	assert.Equal(t, 0.0, testutil.ToFloat64(retried))
}

func TestExecutorCountsRetries(t *testing.T) {
	retried := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_retries_total"})
	s := newTestStore(t, WithRetryCounter(retried))
	require.NoError(t, s.Close())

	_, err := s.Executor().Exec(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(retried))
}

func TestExecutorStopsOnCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	e := s.Executor()
	e.onRetry = func(int, error) { calls++ }
	_, err := e.Exec(ctx, "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls)
}

func TestInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Executor().InTx(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO gallery_images (`+galleryImageColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			"gal_x", "t", "ت", "", "", "/storage/gallery/a.png", 0, 1, "ts", "ts")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetGalleryImage(ctx, "gal_x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
