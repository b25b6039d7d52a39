// Package media uploads photos for reports and sightings and shortens the
// resulting links for SMS-friendly sharing.
package media

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Result is an uploaded photo
type Result struct {
	URL     string `json:"url"`
	LongURL string `json:"longUrl"`
}

// Service uploads and then shortens
type Service struct {
	uploader  Uploader
	shortener Shortener
	log       *zap.SugaredLogger
}

// NewService returns a Service. shortener may be nil to skip shortening.
func NewService(uploader Uploader, shortener Shortener, log *zap.SugaredLogger) *Service {
	return &Service{uploader: uploader, shortener: shortener, log: log}
}

// Upload stores file and returns its short link. If shortening fails the long
// URL is returned in its place.
func (s *Service) Upload(ctx context.Context, file io.Reader, filename string) (*Result, error) {
	long, err := s.uploader.UploadImage(ctx, file, filename)
	if err != nil {
		s.log.Errorw("failed to upload photo", "filename", filename, "error", err)
		return nil, err
	}
	res := &Result{URL: long, LongURL: long}
	if s.shortener == nil {
		return res, nil
	}
	short, err := s.shortener.Shorten(ctx, long)
	if err != nil {
		s.log.Errorw("failed to shorten photo url", "url", long, "error", err)
		return res, nil
	}
	res.URL = short
	return res, nil
}
