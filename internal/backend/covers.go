package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// Cover art constants
const (
	CoverSize    = 300
	CoverQuality = 85
	CoverTimeout = 15 * time.Second
)

// CoverCache downloads thumbnails and stores them as square JPEG covers
type CoverCache struct {
	client *resty.Client
	log    *zap.Logger
}

// NewCoverCache creates a cover cache with its own HTTP client
func NewCoverCache(log *zap.Logger) *CoverCache {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().SetTimeout(CoverTimeout)
	return &CoverCache{client: client, log: log.Named("covers")}
}

// Fetch downloads url and writes a CoverSize x CoverSize cover to dst
func (c *CoverCache) Fetch(ctx context.Context, url, dst string) error {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("fetch thumbnail: status %d", resp.StatusCode())
	}

	img, err := imaging.Decode(bytes.NewReader([]byte(resp.String())), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode thumbnail: %w", err)
	}
	cover := imaging.Fill(img, CoverSize, CoverSize, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create covers dir: %w", err)
	}
	if err := imaging.Save(cover, dst, imaging.JPEGQuality(CoverQuality)); err != nil {
		return fmt.Errorf("save cover: %w", err)
	}

	c.log.Debug("cover saved", zap.String("path", dst))
	return nil
}

// Close releases the HTTP client
func (c *CoverCache) Close() error {
	return c.client.Close()
}
