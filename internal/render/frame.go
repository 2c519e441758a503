// Package render draws protein/genome frames as PNG using fogleman/gg.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/pkg/colormap"
)

// DefaultPointColor is used for points whose protein has no colour.
const DefaultPointColor = "rgba(0,0,0,0.7)"

// Config contains renderer configuration.
type Config struct {
	CellSize int
	// MaxCells bounds each axis so a wide window cannot allocate an
	// arbitrarily large canvas.
	MaxCells int
}

// FrameRenderer renders frames onto a band grid: one column per genome in
// the x domain and one row per protein in the y domain.
type FrameRenderer struct {
	config     Config
	bufferPool sync.Pool
	fallback   color.RGBA
}

// NewFrameRenderer creates a new frame renderer.
func NewFrameRenderer(cfg Config) *FrameRenderer {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 12
	}
	if cfg.MaxCells <= 0 {
		cfg.MaxCells = 2000
	}
	fallback, _ := colormap.Parse(DefaultPointColor)
	return &FrameRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
		fallback: fallback,
	}
}

// CellSize returns the configured band size in pixels.
func (r *FrameRenderer) CellSize() int { return r.config.CellSize }

// RenderFrame draws f and returns PNG bytes.
func (r *FrameRenderer) RenderFrame(f engine.Frame) ([]byte, error) {
	cols := min(len(f.XDomain), r.config.MaxCells)
	rows := min(len(f.YDomain), r.config.MaxCells)
	if cols == 0 || rows == 0 {
		return r.CreateEmptyFrame()
	}

	cell := float64(r.config.CellSize)
	dc := gg.NewContext(cols*r.config.CellSize, rows*r.config.CellSize)
	dc.SetColor(color.White)
	dc.Clear()

	xIndex := make(map[string]int, cols)
	for i, g := range f.XDomain[:cols] {
		xIndex[g] = i
	}
	yIndex := make(map[string]int, rows)
	for i, p := range f.YDomain[:rows] {
		yIndex[p] = i
	}

	parsed := make(map[string]color.RGBA, len(f.Colors))
	radius := cell * 0.35
	for _, p := range f.Points {
		x, ok := xIndex[p.GenomeID]
		if !ok {
			continue
		}
		y, ok := yIndex[p.ProteinID]
		if !ok {
			continue
		}

		c := r.fallback
		if token, ok := f.Colors[p.ProteinID]; ok {
			if cached, ok := parsed[token]; ok {
				c = cached
			} else if v, err := colormap.Parse(token); err == nil {
				parsed[token] = v
				c = v
			}
		}

		dc.SetColor(c)
		dc.DrawCircle(float64(x)*cell+cell/2, float64(y)*cell+cell/2, radius)
		dc.Fill()
	}

	return r.encode(dc.Image())
}

func (r *FrameRenderer) encode(img image.Image) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// CreateEmptyFrame creates a single transparent cell.
func (r *FrameRenderer) CreateEmptyFrame() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.config.CellSize, r.config.CellSize))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255   // R
		img.Pix[i+1] = 255 // G
		img.Pix[i+2] = 255 // B
		img.Pix[i+3] = 0   // A (transparent)
	}
	return r.encode(img)
}
