// Package storage wraps the object store that holds evidentiary snapshot
// images. Snapshots are best-effort: upload failures are logged by callers
// and never interrupt a session.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ObjectStore writes an image blob under a caller-chosen path and returns the
// URL it is readable from.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore builds an ObjectStore on Cloudinary, configured from the
// CLOUDINARY_URL environment variable.
func NewCloudinaryStore(folder string) (ObjectStore, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	if folder == "" {
		folder = "exam-snapshots"
	}
	return &cloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *cloudinaryStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: path,
		Folder:   s.folder,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return resp.SecureURL, nil
}
