package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/warepix/warepix/internal/domain"
)

const (
	// MaxDimension is the ceiling for the longer image side. Larger sources
	// are scaled down before the quality search.
	MaxDimension = 2048

	// MaxIterations bounds the binary search over JPEG quality. Each
	// iteration re-encodes the full raster, which dominates latency.
	MaxIterations = 8

	minQuality = 0.1
	maxQuality = 1.0

	// sizeTolerance is the relative error that ends the search early.
	sizeTolerance = 0.10

	// base64Expansion converts a data-URL length back to raw bytes.
	base64Expansion = 1.37
)

// TargetFor picks the compression target for a source file: originals over
// 1MB aim at 200KB, everything else at 100KB.
func TargetFor(originalSize int64) int {
	if originalSize > 1<<20 {
		return 200 << 10
	}
	return 100 << 10
}

// Compress decodes src, clamps its dimensions to MaxDimension and binary
// searches the JPEG quality in [0.1, 1.0] for the encoding closest to
// targetBytes. It returns the best candidate seen, which is never worse than
// any candidate examined. An unreadable source yields a DecodeError.
func Compress(src []byte, targetBytes int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, domain.DecodeErrorf(err, "compress source")
	}

	raster := clampRaster(img)
	bounds := raster.Bounds()

	var (
		buf      bytes.Buffer
		best     []byte
		bestSize = math.MaxInt
		lo       = minQuality
		hi       = maxQuality
	)

	for attempt := 0; attempt < MaxIterations; attempt++ {
		quality := (lo + hi) / 2

		buf.Reset()
		if err := jpeg.Encode(&buf, raster, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
			return nil, domain.StorageErrorf(err, "jpeg encode at quality %.2f", quality)
		}
		size := buf.Len()

		if abs(size-targetBytes) < abs(bestSize-targetBytes) {
			best = append(best[:0], buf.Bytes()...)
			bestSize = size
		}

		if size > targetBytes {
			hi = quality
		} else {
			lo = quality
		}

		if relativeError(size, targetBytes) < sizeTolerance {
			break
		}
	}

	zap.L().Debug("image compressed",
		zap.String("format", format),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
		zap.Int("source_bytes", len(src)),
		zap.Int("target_bytes", targetBytes),
		zap.Int("result_bytes", bestSize))

	return best, nil
}

// CompressDataURL compresses src and wraps the result as a base64 JPEG data
// URL, the payload format the blob store persists.
func CompressDataURL(src []byte, targetBytes int) (string, error) {
	encoded, err := Compress(src, targetBytes)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(encoded), nil
}

// EstimateDataURLBytes estimates the raw byte size behind a textual data URL
// by dividing out the base64 expansion factor.
func EstimateDataURLBytes(dataURL string) int {
	return int(float64(len(dataURL)) / base64Expansion)
}

// clampRaster renders img onto an RGBA surface no larger than MaxDimension
// on its longer side, preserving the aspect ratio with rounded dimensions.
func clampRaster(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	longer := w
	if h > longer {
		longer = h
	}
	if longer > MaxDimension {
		ratio := float64(MaxDimension) / float64(longer)
		w = int(math.Round(float64(b.Dx()) * ratio))
		h = int(math.Round(float64(b.Dy()) * ratio))
	}

	raster := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(raster, raster.Bounds(), img, b, xdraw.Src, nil)
	return raster
}

// jpegQuality maps the searched [0,1] quality parameter onto the encoder's
// 1..100 scale.
func jpegQuality(q float64) int {
	n := int(math.Round(q * 100))
	if n < 1 {
		n = 1
	}
	if n > 100 {
		n = 100
	}
	return n
}

func relativeError(size, target int) float64 {
	return math.Abs(float64(size-target)) / float64(target)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
