package gpuimage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Font is a TrueType face used for view captions.
type Font struct {
	face *text.GoTextFace
	lh   float64
}

// LoadFont parses TTF or OTF data at the given size.
func LoadFont(ttf []byte, size float64) (*Font, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("gpuimage: parse font: %w", err)
	}
	face := &text.GoTextFace{Source: src, Size: size}
	m := face.Metrics()
	return &Font{face: face, lh: m.HAscent + m.HDescent + m.HLineGap}, nil
}

// caption is text drawn over the filtered frame. It is not part of captures
// taken with Capture, which read the target before the caption is drawn.
type caption struct {
	mu    sync.Mutex
	text  string
	font  *Font
	color Color
}

// SetCaption draws s in the top-left corner of the view. An empty string or
// nil font removes the caption.
func (v *View) SetCaption(s string, font *Font, c Color) {
	v.caption.mu.Lock()
	v.caption.text, v.caption.font, v.caption.color = s, font, c
	v.caption.mu.Unlock()
	v.RequestRender()
}

func (v *View) drawCaption(screen *ebiten.Image) {
	v.caption.mu.Lock()
	s, font, c := v.caption.text, v.caption.font, v.caption.color
	v.caption.mu.Unlock()
	if s == "" || font == nil {
		return
	}
	const margin = 8
	shadow := &text.DrawOptions{}
	shadow.GeoM.Translate(margin+1, margin+1)
	shadow.ColorScale.Scale(0, 0, 0, float32(c.A))
	shadow.LineSpacing = font.lh
	text.Draw(screen, s, font.face, shadow)

	op := &text.DrawOptions{}
	op.GeoM.Translate(margin, margin)
	op.ColorScale.Scale(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	op.LineSpacing = font.lh
	text.Draw(screen, s, font.face, op)
}
