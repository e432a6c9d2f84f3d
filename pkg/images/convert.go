package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// maxSemiperimeter is the largest width plus height the chat platform accepts
// for an inline photo
const maxSemiperimeter = 10000

// jpegQuality is the encode quality for converted inline photos
const jpegQuality = 95

// ConvertForInline re-encodes image content so the chat platform accepts it
// as an inline photo: transparency is flattened onto white, oversized images
// are scaled down to the platform's dimension limit, and the result is JPEG.
func ConvertForInline(data []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	flattened := flattenOntoWhite(decoded)
	resized := shrinkToLimit(flattened)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flattenOntoWhite composites the image over a white background, discarding
// any alpha channel
func flattenOntoWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)
	return dst
}

// shrinkToLimit scales the image down so width plus height stays within the
// platform limit. Images already within the limit come back untouched.
func shrinkToLimit(src *image.RGBA) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width+height <= maxSemiperimeter {
		return src
	}

	scale := float64(maxSemiperimeter) / float64(width+height)
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
