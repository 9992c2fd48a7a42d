package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// MultipartBody is a pre-encoded multipart/form-data payload. The client
// sends it unmodified with its own boundary content type.
type MultipartBody struct {
	buf         bytes.Buffer
	contentType string
}

// ContentType returns the multipart content type including the boundary.
func (m *MultipartBody) ContentType() string {
	return m.contentType
}

func (m *MultipartBody) reader() io.Reader {
	return bytes.NewReader(m.buf.Bytes())
}

// Photo is an image upload.
type Photo struct {
	Filename string
	Data     []byte
}

// ProfileUpdate lists the profile fields to change. Nil fields are not sent.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	Photo       *Photo
	RemovePhoto bool
}

// newProfileBody encodes a profile update the way the backend's PATCH /auth/me/ expects.
func newProfileBody(update ProfileUpdate) (*MultipartBody, error) {
	body := &MultipartBody{}
	w := multipart.NewWriter(&body.buf)

	fields := []struct {
		name  string
		value *string
	}{
		{"first_name", update.FirstName},
		{"last_name", update.LastName},
		{"phone", update.Phone},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := w.WriteField(f.name, *f.value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", f.name, err)
		}
	}

	if update.Photo != nil && len(update.Photo.Data) > 0 {
		filename := update.Photo.Filename
		if filename == "" {
			filename = "avatar.jpg"
		}
		part, err := w.CreateFormFile("photo", filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create photo part: %w", err)
		}
		if _, err := part.Write(update.Photo.Data); err != nil {
			return nil, fmt.Errorf("failed to write photo: %w", err)
		}
	}

	if update.RemovePhoto {
		if err := w.WriteField("remove_photo", "true"); err != nil {
			return nil, fmt.Errorf("failed to write remove_photo field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	body.contentType = w.FormDataContentType()
	return body, nil
}
