package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"path"

	"github.com/disintegration/imaging"
)

// Organization logos are normalized to fit this bounding box before storage.
const (
	logoMaxWidth  = 256
	logoMaxHeight = 256
)

// LogoStore persists organization logos, resizing them on the way in.
type LogoStore struct {
	storage Storage
}

// NewLogoStore creates a LogoStore backed by the given Storage.
func NewLogoStore(storage Storage) *LogoStore {
	return &LogoStore{storage: storage}
}

// Save decodes, resizes and stores a logo for the organization.
// It returns the relative path the logo was stored under.
func (s *LogoStore) Save(ctx context.Context, organizationID string, content io.Reader) (string, error) {
	img, _, err := image.Decode(content)
	if err != nil {
		return "", fmt.Errorf("failed to decode logo image: %w", err)
	}

	resized := imaging.Fit(img, logoMaxWidth, logoMaxHeight, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, resized); err != nil {
		return "", fmt.Errorf("failed to encode logo: %w", err)
	}

	logoPath := path.Join("logos", organizationID+".png")
	if err := s.storage.Save(ctx, logoPath, buf); err != nil {
		return "", err
	}
	return logoPath, nil
}

// Get returns the stored logo content for the organization.
func (s *LogoStore) Get(ctx context.Context, organizationID string) (io.ReadCloser, error) {
	return s.storage.Get(ctx, path.Join("logos", organizationID+".png"))
}

// Delete removes the stored logo for the organization.
func (s *LogoStore) Delete(ctx context.Context, organizationID string) error {
	return s.storage.Delete(ctx, path.Join("logos", organizationID+".png"))
}
