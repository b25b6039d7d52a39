package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/media"
)

// maxUploadBytes caps multipart upload bodies
const maxUploadBytes = 12 << 20

var errUploadsDisabled = errors.New("CLOUDINARY_URL is not set")

// PhotoUploader stores a photo and returns its links
type PhotoUploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*media.Result, error)
}

// Media exported for testing purposes
type Media struct {
	Uploader PhotoUploader
}

// UploadHandler stores the "photo" field of a multipart form
func (m Media) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if m.Uploader == nil {
		writeError(w, "photo uploads are not configured", apperrors.Network("cloudinary", errUploadsDisabled))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, "failed to read photo", apperrors.Validation("photo", err.Error()))
		return
	}
	defer file.Close()

	if err := media.ValidateImageFile(header); err != nil {
		writeError(w, "invalid photo", err)
		return
	}

	res, err := m.Uploader.Upload(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, "failed to upload photo", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, res)
}
