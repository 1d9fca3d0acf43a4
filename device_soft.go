package gpuimage

import (
	"errors"
	"fmt"
	"math"
)

// softDevice is a memory-backed device that executes the CPU kernel of each
// program. Its targets follow the GL convention: storage row 0 is the bottom
// of the picture.
type softDevice struct {
	released bool
}

// NewSoftwareDevice returns a device that renders into main memory. It needs
// no display or GPU and is the default for off-screen surfaces.
func NewSoftwareDevice() (Device, error) {
	return &softDevice{}, nil
}

type softTexture struct {
	w, h     int
	pix      []float32 // 4 floats per texel, straight alpha
	disposed bool
}

func (t *softTexture) Size() (int, int) { return t.w, t.h }

func (t *softTexture) Dispose() {
	t.disposed = true
	t.pix = nil
}

type softProgram struct {
	name   string
	kernel Kernel
}

func (p *softProgram) Dispose() { p.kernel = nil }

var errSoftReleased = errors.New("gpuimage: software device released")

func (d *softDevice) Name() string   { return "software" }
func (d *softDevice) BottomUp() bool { return true }

func (d *softDevice) CompileProgram(src *ShaderSource) (DeviceProgram, error) {
	if d.released {
		return nil, errSoftReleased
	}
	if src.Kernel == nil {
		return nil, fmt.Errorf("program %s has no software kernel", src.Name)
	}
	return &softProgram{name: src.Name, kernel: src.Kernel}, nil
}

func (d *softDevice) NewTexture(w, h int) (DeviceTexture, error) {
	if d.released {
		return nil, errSoftReleased
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return &softTexture{w: w, h: h, pix: make([]float32, w*h*4)}, nil
}

func (d *softDevice) texture(t DeviceTexture) (*softTexture, error) {
	st, ok := t.(*softTexture)
	if !ok || st == nil {
		return nil, fmt.Errorf("gpuimage: texture %T does not belong to the software device", t)
	}
	if st.disposed {
		return nil, errors.New("gpuimage: texture is disposed")
	}
	return st, nil
}

func (d *softDevice) WriteTexture(t DeviceTexture, pix []byte) error {
	st, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(pix) != st.w*st.h*4 {
		return fmt.Errorf("gpuimage: write of %d bytes into %dx%d texture", len(pix), st.w, st.h)
	}
	for i, b := range pix {
		st.pix[i] = float32(b) / 255
	}
	return nil
}

func (d *softDevice) Clear(t DeviceTexture, c Color) error {
	st, err := d.texture(t)
	if err != nil {
		return err
	}
	v := [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
	for i := 0; i < len(st.pix); i += 4 {
		copy(st.pix[i:i+4], v[:])
	}
	return nil
}

func (d *softDevice) ReadPixels(t DeviceTexture, pix []byte) error {
	st, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(pix) != st.w*st.h*4 {
		return fmt.Errorf("gpuimage: read of %d bytes from %dx%d texture", len(pix), st.w, st.h)
	}
	for i, v := range st.pix {
		pix[i] = quantize(v)
	}
	return nil
}

func (d *softDevice) Release() error {
	d.released = true
	return nil
}

// Draw rasterizes an axis-aligned quad. Texture coordinates are interpolated
// bilinearly between the four corners, evaluated at pixel centers.
func (d *softDevice) Draw(dst DeviceTexture, call *DrawCall) error {
	if d.released {
		return errSoftReleased
	}
	target, err := d.texture(dst)
	if err != nil {
		return err
	}
	prog, ok := call.Program.(*softProgram)
	if !ok || prog.kernel == nil {
		return errors.New("gpuimage: invalid software program")
	}
	s := &softSampler{inputs: make([]*softTexture, 0, len(call.Inputs))}
	for _, in := range call.Inputs {
		st, err := d.texture(in)
		if err != nil {
			return err
		}
		if st == target {
			return errors.New("gpuimage: draw target is also an input")
		}
		s.inputs = append(s.inputs, st)
	}

	p := call.Quad.Positions
	tc := call.Quad.TexCoords
	x0, y0 := p[0], p[1]
	x1, y1 := p[6], p[7]
	if p[2] != x1 || p[3] != y0 || p[4] != x0 || p[5] != y1 || x0 == x1 || y0 == y1 {
		return errors.New("gpuimage: software device only draws axis-aligned quads")
	}

	u := Uniforms(call.Uniforms)
	w, h := target.w, target.h
	for py := 0; py < h; py++ {
		ndcY := (float32(py)+0.5)/float32(h)*2 - 1
		fy := (ndcY - y0) / (y1 - y0)
		if fy < 0 || fy >= 1 {
			continue
		}
		row := target.pix[py*w*4 : (py+1)*w*4]
		for px := 0; px < w; px++ {
			ndcX := (float32(px)+0.5)/float32(w)*2 - 1
			fx := (ndcX - x0) / (x1 - x0)
			if fx < 0 || fx >= 1 {
				continue
			}
			uv := Vec2{
				X: lerp(lerp(tc[0], tc[2], fx), lerp(tc[4], tc[6], fx), fy),
				Y: lerp(lerp(tc[1], tc[3], fx), lerp(tc[5], tc[7], fx), fy),
			}
			c := prog.kernel(s, uv, u)
			o := px * 4
			row[o] = clampf(c.R)
			row[o+1] = clampf(c.G)
			row[o+2] = clampf(c.B)
			row[o+3] = clampf(c.A)
		}
	}
	return nil
}

type softSampler struct {
	inputs []*softTexture
}

func (s *softSampler) Inputs() int { return len(s.inputs) }

// Sample reads texel centers at (uv * size - 0.5) with linear filtering,
// clamping to the edge texels.
func (s *softSampler) Sample(i int, uv Vec2) Vec4 {
	if i < 0 || i >= len(s.inputs) {
		return Vec4{}
	}
	t := s.inputs[i]
	x := uv.X*float32(t.w) - 0.5
	y := uv.Y*float32(t.h) - 0.5
	fx0 := float32(math.Floor(float64(x)))
	fy0 := float32(math.Floor(float64(y)))
	ax := x - fx0
	ay := y - fy0
	x0, y0 := int(fx0), int(fy0)

	c00 := t.at(x0, y0)
	c10 := t.at(x0+1, y0)
	c01 := t.at(x0, y0+1)
	c11 := t.at(x0+1, y0+1)
	top := c00.scale(1 - ax).add(c10.scale(ax))
	bottom := c01.scale(1 - ax).add(c11.scale(ax))
	return top.scale(1 - ay).add(bottom.scale(ay))
}

func (t *softTexture) at(x, y int) Vec4 {
	x = clampi(x, 0, t.w-1)
	y = clampi(y, 0, t.h-1)
	o := (y*t.w + x) * 4
	return Vec4{t.pix[o], t.pix[o+1], t.pix[o+2], t.pix[o+3]}
}

func lerp(a, b, f float32) float32 {
	return a + (b-a)*f
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func quantize(v float32) byte {
	return byte(clampf(v)*255 + 0.5)
}
