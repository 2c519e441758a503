// Package colormap provides colour palettes and colour token parsing for
// visualization.
package colormap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
)

// CategoricalColormap provides distinct colors for categories.
type CategoricalColormap struct {
	colors []color.RGBA
}

// Palette returns the colormap as hex colour tokens.
func (c CategoricalColormap) Palette() Palette {
	out := make(Palette, len(c.colors))
	for i, rgba := range c.colors {
		out[i] = Hex(rgba)
	}
	return out
}

// Categorical colormap with 20 distinct colors
var Categorical = CategoricalColormap{
	colors: []color.RGBA{
		{31, 119, 180, 255},  // Blue
		{255, 127, 14, 255},  // Orange
		{44, 160, 44, 255},   // Green
		{214, 39, 40, 255},   // Red
		{148, 103, 189, 255}, // Purple
		{140, 86, 75, 255},   // Brown
		{227, 119, 194, 255}, // Pink
		{127, 127, 127, 255}, // Gray
		{188, 189, 34, 255},  // Olive
		{23, 190, 207, 255},  // Cyan
		{174, 199, 232, 255}, // Light blue
		{255, 187, 120, 255}, // Light orange
		{152, 223, 138, 255}, // Light green
		{255, 152, 150, 255}, // Light red
		{197, 176, 213, 255}, // Light purple
		{196, 156, 148, 255}, // Light brown
		{247, 182, 210, 255}, // Light pink
		{199, 199, 199, 255}, // Light gray
		{219, 219, 141, 255}, // Light olive
		{158, 218, 229, 255}, // Light cyan
	},
}

// Palette is an ordered list of colour tokens handed out to facet values.
type Palette []string

// LoadPalette reads a palette from JSON: either an array of tokens or an
// object whose values are tokens, in document order. Non-string entries are
// skipped.
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette: %w", err)
	}
	return ParsePalette(data)
}

// ParsePalette decodes palette JSON.
func ParsePalette(data []byte) (Palette, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode palette: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return nil, fmt.Errorf("palette must be a JSON array or object")
	}

	var out Palette
	for dec.More() {
		if delim == '{' {
			// Object keys are names only.
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("failed to decode palette: %w", err)
			}
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode palette: %w", err)
		}
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Hex formats a color as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Parse converts a colour token to a color. Supported forms are #rgb,
// #rrggbb, #rrggbbaa, rgb(r, g, b) and rgba(r, g, b, a) with a in [0, 1].
func Parse(token string) (color.RGBA, error) {
	s := strings.TrimSpace(strings.ToLower(token))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[5:len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[4:len(s)-1], false)
	}
	return color.RGBA{}, fmt.Errorf("unsupported colour %q", token)
}

func parseHex(h string) (color.RGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q: %w", h, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(args string, alpha bool) (color.RGBA, error) {
	parts := strings.Split(args, ",")
	want := 3
	if alpha {
		want = 4
	}
	if len(parts) != want {
		return color.RGBA{}, fmt.Errorf("expected %d components, got %d", want, len(parts))
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return color.RGBA{}, fmt.Errorf("invalid colour component %q", parts[i])
		}
		ch[i] = uint8(n)
	}
	a := 1.0
	if alpha {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return color.RGBA{}, fmt.Errorf("invalid alpha %q", parts[3])
		}
		a = f
	}
	// Premultiplied, as image/color expects.
	return color.RGBA{
		R: uint8(float64(ch[0]) * a),
		G: uint8(float64(ch[1]) * a),
		B: uint8(float64(ch[2]) * a),
		A: uint8(255 * a),
	}, nil
}
