package scene

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	labelFaceOnce sync.Once
	labelFace     font.Face
)

// labelFont returns the face used for entity labels. It falls back to the
// drawing context's built-in face if the embedded font cannot be parsed.
func labelFont() font.Face {
	labelFaceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return
		}
		labelFace = truetype.NewFace(f, &truetype.Options{
			Size:    12,
			Hinting: font.HintingFull,
		})
	})
	return labelFace
}

// Canvas is a fixed-resolution raster target.
type Canvas struct {
	dc *gg.Context
}

func NewCanvas(width, height int) *Canvas {
	dc := gg.NewContext(width, height)
	if face := labelFont(); face != nil {
		dc.SetFontFace(face)
	}
	c := &Canvas{dc: dc}
	c.Clear()
	return c
}

// Clear paints the whole canvas with the background and resets the
// transform.
func (c *Canvas) Clear() {
	c.dc.Identity()
	c.dc.SetColor(color.White)
	c.dc.Clear()
}

func (c *Canvas) Width() int  { return c.dc.Width() }
func (c *Canvas) Height() int { return c.dc.Height() }

func (c *Canvas) Image() image.Image { return c.dc.Image() }

func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}
