package studio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
)

const placeholderSize = 1024

var (
	placeholderStart = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	placeholderEnd   = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}

	moodAccents = []struct {
		keywords []string
		color    color.RGBA
	}{
		{[]string{"Happy", "Party"}, color.RGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}},
		{[]string{"Romantic", "Sexy"}, color.RGBA{R: 0xe1, G: 0x1d, B: 0x48, A: 0xff}},
		{[]string{"Sad", "Chill"}, color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}},
	}
)

// placeholderDimensions sizes the mock image after the preset ratio
func placeholderDimensions(ratio string) (int, int) {
	switch ratio {
	case "16:9":
		return placeholderSize, 576
	case "9:16":
		return 576, placeholderSize
	case "4:3":
		return placeholderSize, 768
	case "3:4":
		return 768, placeholderSize
	}
	return placeholderSize, placeholderSize
}

// renderPlaceholder draws a diagonal gradient tinted by the visual mood with a
// faint centered disc, encoded as PNG
func renderPlaceholder(ratio, visualMood string) (llm.Part, error) {
	w, h := placeholderDimensions(ratio)
	stops := []color.RGBA{placeholderStart}
	for _, a := range moodAccents {
		if containsAny(visualMood, a.keywords) {
			stops = append(stops, a.color)
			break
		}
	}
	stops = append(stops, placeholderEnd)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	radius := float64(w) / 3
	diag := float64(w*w + h*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Projection onto the top-left to bottom-right diagonal
			t := (float64(x*w) + float64(y*h)) / diag
			c := gradientAt(stops, t)
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= radius*radius {
				c = overlayWhite(c, 0.05)
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return llm.Part{}, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return llm.Part{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

// gradientAt interpolates evenly spaced stops at t in [0, 1]
func gradientAt(stops []color.RGBA, t float64) color.RGBA {
	if t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	segments := float64(len(stops) - 1)
	i := int(t * segments)
	local := t*segments - float64(i)
	return lerp(stops[i], stops[i+1], local)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func overlayWhite(c color.RGBA, alpha float64) color.RGBA {
	return lerp(c, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, alpha)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
