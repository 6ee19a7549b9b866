package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

const (
	// DefaultMaxDimension is the long-edge limit for vision input.
	DefaultMaxDimension = 2048

	jpegQuality = 90
)

// Downloader fetches private attachment bytes.
type Downloader interface {
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// Loader downloads image attachments, downscales them and returns data URLs.
type Loader struct {
	downloader Downloader
	maxDim     int
}

func NewLoader(downloader Downloader, maxDim int) *Loader {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return &Loader{downloader: downloader, maxDim: maxDim}
}

// Load processes every image file in order. Non-image files and files that
// fail to download or decode are skipped with a warning.
func (l *Loader) Load(ctx context.Context, files []model.File) []string {
	var urls []string
	for _, f := range files {
		if !f.IsImage() || f.URLPrivate == "" {
			slog.InfoContext(ctx, "skipping non-image attachment",
				"file_id", f.ID,
				"mimetype", f.Mimetype)
			continue
		}

		url, err := l.loadOne(ctx, f)
		if err != nil {
			slog.WarnContext(ctx, "image attachment skipped",
				"file_id", f.ID,
				"file_name", f.Name,
				"error", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (l *Loader) loadOne(ctx context.Context, f model.File) (string, error) {
	timer := logger.StartTimer(ctx, "image processed")

	data, err := l.downloader.DownloadFile(ctx, f.URLPrivate)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", f.ID, err)
	}

	out, mimeType, err := Downscale(data, f.Mimetype, l.maxDim)
	if err != nil {
		return "", fmt.Errorf("resizing %s: %w", f.ID, err)
	}

	timer.End("file_id", f.ID, "original_bytes", len(data), "bytes", len(out), "mimetype", mimeType)
	return DataURL(out, mimeType), nil
}

// Downscale shrinks an image so its long edge is at most maxDim. Images
// already within the limit are returned unchanged. Resized images are
// re-encoded as PNG when the source format can carry alpha, JPEG otherwise.
func Downscale(data []byte, mimeType string, maxDim int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	longEdge := max(cfg.Width, cfg.Height)
	if longEdge <= maxDim {
		if mimeType == "" {
			mimeType = "image/" + format
		}
		return data, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	w, h := scaledSize(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "png", "gif", "bmp", "tiff":
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

func scaledSize(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, max(1, int(math.Round(float64(h)*float64(maxDim)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(maxDim)/float64(h)))), maxDim
}

// DataURL encodes bytes as a base64 data URL.
func DataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
