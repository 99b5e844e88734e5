package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"sync"
)

var (
	placeholderOnce sync.Once
	placeholderURL  string
)

// PlaceholderDataURL returns the flat gray stand-in image stored for
// products imported without a photo. Encoded once per process.
func PlaceholderDataURL() string {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 200, 200))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}), image.Point{}, draw.Src)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
			// encoding a uniform in-memory raster cannot fail at runtime
			panic(err)
		}
		placeholderURL = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	})
	return placeholderURL
}
