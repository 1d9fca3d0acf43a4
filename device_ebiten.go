package gpuimage

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

// ebitenDevice renders with Ebitengine: programs are Kage shaders and
// textures are unmanaged ebiten.Images. Images store premultiplied alpha, so
// pixels are converted on upload and read-back. Rows are stored top-down.
//
// Ebitengine only executes GPU commands once its game loop is running, so an
// ebiten-backed off-screen surface must be used from inside a running game.
// Read-backs before that return ErrNoGameLoop.
type ebitenDevice struct{}

// gameLoopRunning is set by the first View tick.
var gameLoopRunning atomic.Bool

// NewEbitenDevice returns a device backed by Ebitengine.
func NewEbitenDevice() (Device, error) {
	return &ebitenDevice{}, nil
}

type ebitenTexture struct {
	img   *ebiten.Image
	w, h  int
	owned bool
}

func (t *ebitenTexture) Size() (int, int) { return t.w, t.h }

func (t *ebitenTexture) Dispose() {
	if t.owned && t.img != nil {
		t.img.Deallocate()
	}
	t.img = nil
}

// wrapScreen adopts an image owned by Ebitengine, such as the screen passed
// to Draw. Disposing the wrapper leaves the image alive.
func wrapScreen(img *ebiten.Image) *ebitenTexture {
	b := img.Bounds()
	return &ebitenTexture{img: img, w: b.Dx(), h: b.Dy()}
}

type ebitenProgram struct {
	shader *ebiten.Shader
}

func (p *ebitenProgram) Dispose() {
	if p.shader != nil {
		p.shader.Deallocate()
		p.shader = nil
	}
}

func (d *ebitenDevice) Name() string   { return "ebiten" }
func (d *ebitenDevice) BottomUp() bool { return false }

func (d *ebitenDevice) CompileProgram(src *ShaderSource) (DeviceProgram, error) {
	s, err := ebiten.NewShader([]byte(src.Kage))
	if err != nil {
		return nil, &CompileError{Program: src.Name, Log: err.Error()}
	}
	return &ebitenProgram{shader: s}, nil
}

func (d *ebitenDevice) NewTexture(w, h int) (DeviceTexture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	img := ebiten.NewImageWithOptions(image.Rect(0, 0, w, h), &ebiten.NewImageOptions{Unmanaged: true})
	return &ebitenTexture{img: img, w: w, h: h, owned: true}, nil
}

func (d *ebitenDevice) texture(t DeviceTexture) (*ebitenTexture, error) {
	et, ok := t.(*ebitenTexture)
	if !ok || et == nil {
		return nil, fmt.Errorf("gpuimage: texture %T does not belong to the ebiten device", t)
	}
	if et.img == nil {
		return nil, errors.New("gpuimage: texture is disposed")
	}
	return et, nil
}

func (d *ebitenDevice) WriteTexture(t DeviceTexture, pix []byte) error {
	et, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(pix) != et.w*et.h*4 {
		return fmt.Errorf("gpuimage: write of %d bytes into %dx%d texture", len(pix), et.w, et.h)
	}
	buf := make([]byte, len(pix))
	copy(buf, pix)
	premultiply(buf)
	et.img.WritePixels(buf)
	return nil
}

func (d *ebitenDevice) Clear(t DeviceTexture, c Color) error {
	et, err := d.texture(t)
	if err != nil {
		return err
	}
	if c == ColorTransparent {
		et.img.Clear()
		return nil
	}
	et.img.Fill(c.toNRGBA())
	return nil
}

func (d *ebitenDevice) ReadPixels(t DeviceTexture, pix []byte) error {
	if !gameLoopRunning.Load() {
		return ErrNoGameLoop
	}
	et, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(pix) != et.w*et.h*4 {
		return fmt.Errorf("gpuimage: read of %d bytes from %dx%d texture", len(pix), et.w, et.h)
	}
	et.img.ReadPixels(pix)
	unpremultiply(pix)
	return nil
}

func (d *ebitenDevice) Release() error { return nil }

// quadIndices splits the strip bottom-left, bottom-right, top-left, top-right
// into two triangles.
var quadIndices = []uint32{0, 1, 2, 2, 1, 3}

// Draw converts the quad to pixel-space vertices: NDC y grows upward while
// Ebitengine destinations grow downward, and source positions are texture
// coordinates scaled by the size of input 0.
func (d *ebitenDevice) Draw(dst DeviceTexture, call *DrawCall) error {
	target, err := d.texture(dst)
	if err != nil {
		return err
	}
	prog, ok := call.Program.(*ebitenProgram)
	if !ok || prog.shader == nil {
		return errors.New("gpuimage: invalid ebiten program")
	}
	if len(call.Inputs) == 0 || len(call.Inputs) > 4 {
		return fmt.Errorf("gpuimage: draw needs 1 to 4 inputs, got %d", len(call.Inputs))
	}

	op := &ebiten.DrawTrianglesShaderOptions{
		Uniforms: call.Uniforms,
		Blend:    ebiten.BlendCopy,
	}
	var sw, sh float32
	for i, in := range call.Inputs {
		et, err := d.texture(in)
		if err != nil {
			return err
		}
		if i == 0 {
			sw, sh = float32(et.w), float32(et.h)
		}
		op.Images[i] = et.img
	}

	dw, dh := float32(target.w), float32(target.h)
	p := call.Quad.Positions
	tc := call.Quad.TexCoords
	vertices := make([]ebiten.Vertex, 4)
	for i := range vertices {
		vertices[i] = ebiten.Vertex{
			DstX:   (p[i*2] + 1) / 2 * dw,
			DstY:   (1 - p[i*2+1]) / 2 * dh,
			SrcX:   tc[i*2] * sw,
			SrcY:   tc[i*2+1] * sh,
			ColorR: 1,
			ColorG: 1,
			ColorB: 1,
			ColorA: 1,
		}
	}
	target.img.DrawTrianglesShader32(vertices, quadIndices, prog.shader, op)
	return nil
}
