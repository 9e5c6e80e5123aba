// Package media re-hosts images on Cloudinary so article image URLs do not
// depend on short-lived source links.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/GV888/easy-template-mcp/internal/metrics"
)

// DefaultFolder is the Cloudinary folder uploads go to.
const DefaultFolder = "easy-template"

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("media: Cloudinary is not configured")

// Uploader copies a remote image to the media host and returns its public
// URL.
type Uploader interface {
	Upload(ctx context.Context, sourceURL string) (string, error)
}

// Cloudinary uploads by remote URL, so the image bytes never pass through
// this process.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// Option configures a Cloudinary uploader.
type Option func(*config.Configuration)

// WithUploadPrefix points uploads at another API host.
func WithUploadPrefix(prefix string) Option {
	return func(c *config.Configuration) { c.API.UploadPrefix = prefix }
}

// NewCloudinary returns an uploader for the given account. An empty folder
// uses DefaultFolder.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string, opts ...Option) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}

	conf, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("media: building Cloudinary config: %w", err)
	}
	for _, opt := range opts {
		opt(conf)
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("media: creating Cloudinary client: %w", err)
	}

	if folder == "" {
		folder = DefaultFolder
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

// Upload fetches sourceURL into the configured folder and returns the
// secure URL of the stored copy.
func (c *Cloudinary) Upload(ctx context.Context, sourceURL string) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, sourceURL, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		metrics.ImageUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("media: uploading image: %w", err)
	}
	if res.Error.Message != "" {
		metrics.ImageUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("media: uploading image: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		metrics.ImageUploadsTotal.WithLabelValues("error").Inc()
		return "", errors.New("media: upload response has no secure_url")
	}

	metrics.ImageUploadsTotal.WithLabelValues("success").Inc()
	return res.SecureURL, nil
}
