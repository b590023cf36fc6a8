package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/logger"
)

// Asset describes a stored upload.
type Asset struct {
	Kind        Kind      `json:"kind"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Uploader validates files and writes them under "<kind>s/<uuid><ext>".
type Uploader struct {
	store     ObjectStore
	maxBytes  int64
	urlExpiry time.Duration
	now       func() time.Time
}

func NewUploader(store ObjectStore, maxBytes int64, urlExpiry time.Duration) *Uploader {
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &Uploader{store: store, maxBytes: maxBytes, urlExpiry: urlExpiry, now: time.Now}
}

// MaxBytes is the upload size limit.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload reads at most MaxBytes from r, validates it and stores it.
func (u *Uploader) Upload(ctx context.Context, kind Kind, r io.Reader) (*Asset, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedType, kind)
	}
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrTooLarge
	}

	contentType, ext, err := Inspect(kind, data)
	if err != nil {
		return nil, err
	}

	key := string(kind) + "s/" + uuid.NewString() + ext
	if err := u.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, err
	}
	url, err := u.store.PresignGet(ctx, key, u.urlExpiry)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"kind": kind, "key": key, "size": len(data)}).Info("Asset uploaded")
	return &Asset{
		Kind:        kind,
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
		ExpiresAt:   u.now().Add(u.urlExpiry),
	}, nil
}
