package classification

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// Model input geometry. Images are resized to a ModelInputSize square with
// ModelChannels channels and pixel values normalized to [0,1] before
// inference.
const (
	ModelInputSize = 224
	ModelChannels  = 3
)

// colorFeatureDim is the width of the color-statistics vector extracted
// from a preprocessed image: mean and standard deviation per channel plus
// a 4-bin intensity histogram per channel.
const colorFeatureDim = 18

// transportMaxDim caps the longest image side before remote transport
const transportMaxDim = 1024

// preprocessImage decodes an encoded image and returns the normalized
// pixel tensor at the model input geometry, RGB row-major in [0,1].
func preprocessImage(data []byte) ([]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreprocessing, err)
	}
	resized := resizeSquare(img, ModelInputSize)
	return normalizePixels(resized), nil
}

// resizeSquare scales an image onto a size x size canvas
func resizeSquare(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// normalizePixels flattens an RGBA image into RGB floats in [0,1]
func normalizePixels(img *image.RGBA) []float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]float64, 0, width*height*ModelChannels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			offset := img.PixOffset(x, y)
			out = append(out,
				float64(img.Pix[offset])/255.0,
				float64(img.Pix[offset+1])/255.0,
				float64(img.Pix[offset+2])/255.0,
			)
		}
	}
	return out
}

// colorFeatures reduces a normalized pixel tensor to the color-statistics
// vector the bundled linear models are trained on.
func colorFeatures(pixels []float64) []float64 {
	features := make([]float64, colorFeatureDim)
	count := len(pixels) / ModelChannels
	if count == 0 {
		return features
	}

	// Channel means.
	for i := 0; i < len(pixels); i += ModelChannels {
		features[0] += pixels[i]
		features[1] += pixels[i+1]
		features[2] += pixels[i+2]
	}
	for c := 0; c < ModelChannels; c++ {
		features[c] /= float64(count)
	}

	// Channel standard deviations.
	for i := 0; i < len(pixels); i += ModelChannels {
		for c := 0; c < ModelChannels; c++ {
			d := pixels[i+c] - features[c]
			features[3+c] += d * d
		}
	}
	for c := 0; c < ModelChannels; c++ {
		features[3+c] = math.Sqrt(features[3+c] / float64(count))
	}

	// 4-bin intensity histogram per channel, normalized by pixel count.
	for i := 0; i < len(pixels); i += ModelChannels {
		for c := 0; c < ModelChannels; c++ {
			bin := int(pixels[i+c] * 4)
			if bin > 3 {
				bin = 3
			}
			features[6+c*4+bin]++
		}
	}
	for i := 6; i < colorFeatureDim; i++ {
		features[i] /= float64(count)
	}
	return features
}

// DecodeImagePayload decodes a base64 image payload that may carry a
// data-URL header. Everything before the first comma is treated as the
// header and dropped.
func DecodeImagePayload(payload string) ([]byte, error) {
	encoded := payload
	if idx := strings.Index(payload, ","); idx >= 0 {
		encoded = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	return data, nil
}

// EncodeImagePayload wraps encoded image bytes in a data URL
func EncodeImagePayload(data []byte) string {
	mime := http.DetectContentType(data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// resizeForTransport downscales an image so its longest side fits
// transportMaxDim, re-encoding as JPEG. Images already small enough pass
// through untouched. A decode or encode failure returns ErrPreprocessing;
// the remote variant absorbs it and ships the original bytes instead.
func resizeForTransport(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreprocessing, err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= transportMaxDim && height <= transportMaxDim {
		return data, nil
	}

	scale := float64(transportMaxDim) / float64(width)
	if height > width {
		scale = float64(transportMaxDim) / float64(height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreprocessing, err)
	}
	return buf.Bytes(), nil
}
