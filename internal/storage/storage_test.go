package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://assets.test/" + key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// minimalPDF builds a one-page document with a valid cross-reference table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestKindValid(t *testing.T) {
	assert.True(t, KindCover.Valid())
	assert.True(t, KindPDF.Valid())
	assert.False(t, Kind("video").Valid())
}

func TestInspect(t *testing.T) {
	ct, ext, err := Inspect(KindCover, pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)

	_, _, err = Inspect(KindCover, []byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, _, err = Inspect(KindCover, nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = Inspect(KindPDF, pngHeader)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestInspect_PDF(t *testing.T) {
	ct, ext, err := Inspect(KindPDF, minimalPDF())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, ".pdf", ext)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(minimalPDF())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = PageCount([]byte("%PDF-1.4\ngarbage"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestUploader_Upload(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, 1024, time.Hour)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return fixed }

	asset, err := u.Upload(context.Background(), KindCover, bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.Key, "covers/"))
	assert.True(t, strings.HasSuffix(asset.Key, ".png"))
	assert.Equal(t, "http://assets.test/"+asset.Key, asset.URL)
	assert.Equal(t, int64(len(pngHeader)), asset.Size)
	assert.Equal(t, fixed.Add(time.Hour), asset.ExpiresAt)
	assert.Equal(t, pngHeader, store.objects[asset.Key])
	assert.Equal(t, "image/png", store.types[asset.Key])
}

func TestUploader_PDF(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, 1<<20, 0)

	asset, err := u.Upload(context.Background(), KindPDF, bytes.NewReader(minimalPDF()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.Key, "pdfs/"))
	assert.Equal(t, "application/pdf", asset.ContentType)
}

func TestUploader_Rejects(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, 8, time.Hour)

	_, err := u.Upload(context.Background(), KindCover, bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = u.Upload(context.Background(), Kind("avatar"), bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	assert.Empty(t, store.objects)
}

func TestUploader_StoreError(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("bucket unavailable")
	u := NewUploader(store, 1024, time.Hour)

	_, err := u.Upload(context.Background(), KindCover, bytes.NewReader(pngHeader))
	assert.EqualError(t, err, "bucket unavailable")
}
