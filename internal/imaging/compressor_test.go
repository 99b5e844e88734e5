package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/warepix/warepix/internal/domain"
)

func makePNG(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rnd := rand.New(rand.NewSource(42))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if noisy {
				img.Set(x, y, color.RGBA{
					R: uint8(rnd.Intn(256)),
					G: uint8(rnd.Intn(256)),
					B: uint8(rnd.Intn(256)),
					A: 255,
				})
			} else {
				img.Set(x, y, color.RGBA{
					R: uint8(x * 255 / w),
					G: uint8(y * 255 / h),
					B: 128,
					A: 255,
				})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not a decodable JPEG: %v", err)
	}
	return img
}

func TestCompressClampsDimensions(t *testing.T) {
	src := makePNG(t, 3000, 2000, false)

	out, err := Compress(src, 100<<10)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	img := decodeJPEG(t, out)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w > MaxDimension || h > MaxDimension {
		t.Fatalf("dimensions not clamped: %dx%d", w, h)
	}
	if w != 2048 || h != 1365 {
		t.Fatalf("expected 2048x1365, got %dx%d", w, h)
	}

	// aspect ratio preserved within rounding error
	want := 3000.0 / 2000.0
	got := float64(w) / float64(h)
	if math.Abs(float64(w)-want*float64(h)) > 1 {
		t.Fatalf("ratio drifted: want %.4f got %.4f", want, got)
	}
}

func TestCompressKeepsSmallDimensions(t *testing.T) {
	src := makePNG(t, 640, 480, false)

	out, err := Compress(src, 100<<10)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	img := decodeJPEG(t, out)
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("small image resized: %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestCompressUnreadableSource(t *testing.T) {
	_, err := Compress([]byte("definitely not an image"), 100<<10)
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
	if !domain.IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

// A tiny target must select a smaller candidate than an enormous target,
// since the search never returns a worse candidate than one it examined.
func TestCompressTargetOrdersCandidates(t *testing.T) {
	src := makePNG(t, 1024, 768, true)

	small, err := Compress(src, 1)
	if err != nil {
		t.Fatalf("Compress small target: %v", err)
	}
	large, err := Compress(src, 100<<20)
	if err != nil {
		t.Fatalf("Compress large target: %v", err)
	}

	if len(small) > len(large) {
		t.Fatalf("small target produced larger output: %d > %d", len(small), len(large))
	}
	decodeJPEG(t, small)
	decodeJPEG(t, large)
}

func TestTargetFor(t *testing.T) {
	if got := TargetFor(2 << 20); got != 200<<10 {
		t.Fatalf("2MB original: want 200KB target, got %d", got)
	}
	if got := TargetFor(500 << 10); got != 100<<10 {
		t.Fatalf("500KB original: want 100KB target, got %d", got)
	}
}

func TestCompressDataURL(t *testing.T) {
	src := makePNG(t, 320, 240, false)

	dataURL, err := CompressDataURL(src, 100<<10)
	if err != nil {
		t.Fatalf("CompressDataURL: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("missing data URL prefix: %.40s", dataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[len(prefix):])
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	decodeJPEG(t, raw)

	est := EstimateDataURLBytes(dataURL)
	if est <= 0 || est > len(dataURL) {
		t.Fatalf("implausible size estimate %d for %d chars", est, len(dataURL))
	}
}
