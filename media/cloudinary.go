package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/safekid-nepal/safekid-api/apperrors"
)

// MaxImageSize is the largest photo accepted for upload
const MaxImageSize = int64(10 * 1024 * 1024)

// AllowedImageTypes are the photo extensions accepted for upload
var AllowedImageTypes = []string{".jpg", ".jpeg", ".png", ".webp", ".heic"}

// Uploader stores an image and returns its public URL
type Uploader interface {
	UploadImage(ctx context.Context, file io.Reader, filename string) (string, error)
}

// CloudinaryUploader uploads images to a Cloudinary folder
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL
func NewCloudinaryUploader(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	if folder == "" {
		folder = "safekid"
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// UploadImage uploads file and returns its secure URL
func (u *CloudinaryUploader) UploadImage(ctx context.Context, file io.Reader, filename string) (string, error) {
	result, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       u.folder + "/photos",
		ResourceType: "image",
	})
	if err != nil {
		return "", apperrors.Network("cloudinary", err)
	}
	if result.Error.Message != "" {
		return "", apperrors.Network("cloudinary", fmt.Errorf("%s", result.Error.Message))
	}
	return result.SecureURL, nil
}

// ValidateImageFile checks the size and extension of an uploaded photo
func ValidateImageFile(header *multipart.FileHeader) error {
	if header.Size > MaxImageSize {
		return apperrors.Validation("photo", fmt.Sprintf("image exceeds the maximum size of %d MB", MaxImageSize/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range AllowedImageTypes {
		if ext == allowed {
			return nil
		}
	}
	return apperrors.Validation("photo", fmt.Sprintf("invalid image type %q, allowed: %s", ext, strings.Join(AllowedImageTypes, ", ")))
}
