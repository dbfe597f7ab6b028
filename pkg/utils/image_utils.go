package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	// Additional drawing formats accepted on upload.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnknownFormat = errors.New("unknown image format")
	ErrEmptyRegion   = errors.New("region outside image")
)

// ImageInfo describes a decoded drawing without holding its pixels.
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

func (i ImageInfo) ContentType() string {
	return ContentType(i.Format)
}

func (i ImageInfo) Extension() string {
	switch i.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	}
	return "." + i.Format
}

func ContentType(format string) string {
	switch format {
	case "png", "jpeg", "gif", "bmp", "tiff", "webp":
		return "image/" + format
	}
	return "application/octet-stream"
}

type ImageProcessor struct {
	log *zap.Logger
}

func NewImageProcessor(log *zap.Logger) *ImageProcessor {
	return &ImageProcessor{log: log}
}

// DecodeBase64 accepts plain base64 or a data URL ("data:image/png;base64,...").
func (p *ImageProcessor) DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Inspect reads the image header only.
func (p *ImageProcessor) Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return ImageInfo{}, ErrUnknownFormat
		}
		return ImageInfo{}, err
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Preview crops region out of the image and scales it down so that its longer side is at most
// maxSide pixels. The result is PNG encoded. A maxSide of zero keeps the native size.
func (p *ImageProcessor) Preview(data []byte, region image.Rectangle, maxSide int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	region = region.Intersect(src.Bounds())
	if region.Empty() {
		return nil, ErrEmptyRegion
	}

	w, h := region.Dx(), region.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = max(1, h*maxSide/w)
			w = maxSide
		} else {
			w = max(1, w*maxSide/h)
			h = maxSide
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}

	p.log.Debug("Preview rendered",
		zap.String("region", region.String()),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("size", buf.Len()))
	return buf.Bytes(), nil
}

// CompressImage re-encodes the image as JPEG at the given quality.
func (p *ImageProcessor) CompressImage(data []byte, quality int) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", err
	}

	p.log.Info("Image compressed",
		zap.Int("quality", quality),
		zap.Int("input_size", len(data)),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), "image/jpeg", nil
}
