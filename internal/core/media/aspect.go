// Package media inspects uploaded images for report image cells
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
)

// DefaultMaxBytes caps how much of an upload is read
const DefaultMaxBytes = 20 << 20

var (
	// ErrNotImage is returned for uploads that are not a decodable image
	ErrNotImage = errors.New("file is not a supported image")
	// ErrTooLarge is returned for uploads over the size cap
	ErrTooLarge = errors.New("image exceeds size limit")
)

// supportedMIME lists the formats imaging can decode
var supportedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// ImageInfo describes an inspected image
type ImageInfo struct {
	MIMEType    string  `json:"mimeType"`
	Extension   string  `json:"extension"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Ratio       float64 `json:"ratio"`
	AspectRatio string  `json:"aspectRatio"`
}

// Inspector sniffs and decodes images to suggest an aspect ratio
type Inspector struct {
	maxBytes int64
	logger   *logrus.Logger
}

// NewInspector creates an inspector. maxBytes <= 0 uses DefaultMaxBytes.
func NewInspector(maxBytes int64, logger *logrus.Logger) *Inspector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Inspector{maxBytes: maxBytes, logger: logger}
}

// Inspect reads an image and picks the supported aspect ratio closest to
// its oriented dimensions
func (i *Inspector) Inspect(r io.Reader) (*ImageInfo, error) {
	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, ErrTooLarge
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !supportedMIME[kind.MIME.Value] {
		return nil, ErrNotImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bounds := img.Bounds()
	info := &ImageInfo{
		MIMEType:  kind.MIME.Value,
		Extension: kind.Extension,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, ErrNotImage
	}
	info.Ratio = float64(info.Width) / float64(info.Height)
	info.AspectRatio = NearestAspectRatio(info.Width, info.Height)

	if i.logger != nil {
		i.logger.WithFields(logrus.Fields{
			"mime_type":    info.MIMEType,
			"width":        info.Width,
			"height":       info.Height,
			"aspect_ratio": info.AspectRatio,
		}).Debug("Image inspected")
	}
	return info, nil
}

// NearestAspectRatio maps pixel dimensions to 16:9, 9:16 or 1:1, compared
// on a log scale so portrait and landscape are treated symmetrically
func NearestAspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return charts.AspectSquare
	}
	ratio := math.Log(float64(width) / float64(height))

	best, bestDist := charts.AspectSquare, math.Abs(ratio)
	for _, candidate := range []string{charts.AspectLandscape, charts.AspectPortrait} {
		var w, h float64
		if candidate == charts.AspectLandscape {
			w, h = 16, 9
		} else {
			w, h = 9, 16
		}
		if d := math.Abs(ratio - math.Log(w/h)); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
