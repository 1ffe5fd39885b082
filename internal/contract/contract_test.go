package contract

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

func TestRenderWritesPDF(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	renderer := NewPDFRenderer(store, "01026751430", nil)
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	renderer.now = func() time.Time { return at }

	purpose := "Home renovation"
	svc := models.Service{
		ID:        12,
		Type:      models.ServiceFunding,
		Amount:    "500.00",
		Purpose:   &purpose,
		CreatedAt: at,
	}
	user := models.User{FullName: "Mona Hassan", NationalID: "29001011234567", Phone: "01000000000"}

	path, err := renderer.Render(context.Background(), svc, user)
	require.NoError(t, err)

	assert.Equal(t, FileName(12, at), filepath.Base(path))
	assert.Equal(t, "FC-12-1792143000000", Number(12, at))

	rc, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderUsesDistinctNamesPerGeneration(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	renderer := NewPDFRenderer(store, "01026751430", nil)

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	renderer.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	svc := models.Service{ID: 3, Type: models.ServiceSaving, Amount: "10.00"}
	first, err := renderer.Render(context.Background(), svc, models.User{})
	require.NoError(t, err)
	second, err := renderer.Render(context.Background(), svc, models.User{})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	renderer := NewPDFRenderer(store, "01026751430", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = renderer.Render(ctx, models.Service{ID: 1, Amount: "1.00"}, models.User{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStoreRejectsForeignPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "contracts"))
	require.NoError(t, err)

	secret := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0o600))

	for _, path := range []string{
		secret,
		filepath.Join(dir, "contracts", "..", "secret.txt"),
		filepath.Join(dir, "contracts"),
		"relative.pdf",
	} {
		_, err := store.Open(context.Background(), path)
		assert.ErrorIs(t, err, ErrOutsideStore, path)
	}

	_, err = store.Save(context.Background(), "../escape.pdf", []byte("x"))
	assert.Error(t, err)
}

// expiringContext reports no error on its first Err call and Canceled afterwards,
// modelling a deadline that passes while the file is being written.
type expiringContext struct {
	context.Context
	checks int
}

func (c *expiringContext) Err() error {
	c.checks++
	if c.checks > 1 {
		return context.Canceled
	}
	return nil
}

func TestSaveDiscardsFileWhenContextEndsMidWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := &expiringContext{Context: context.Background()}
	_, err = store.Save(ctx, "contract-5-1.pdf", []byte("%PDF-1.3"))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
