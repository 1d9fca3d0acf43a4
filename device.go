package gpuimage

// Device is the graphics driver the pipeline renders through. A Device is
// owned by exactly one Context and its methods are only called from that
// context's goroutine, behind the ownership check in Frame.
type Device interface {
	// Name identifies the backend in logs ("software", "ebiten").
	Name() string

	// BottomUp reports whether render targets store row 0 at the bottom of
	// the picture, as GL framebuffers do. Read-back from such a target must be
	// mirrored to produce a top-down image.
	BottomUp() bool

	// CompileProgram compiles a shader source into a program handle.
	CompileProgram(src *ShaderSource) (DeviceProgram, error)

	// NewTexture allocates a w x h texture that can be sampled and drawn to.
	NewTexture(w, h int) (DeviceTexture, error)

	// WriteTexture uploads straight-alpha RGBA pixels. Row 0 of pix is the
	// first row of the image and is sampled at t = 0.
	WriteTexture(t DeviceTexture, pix []byte) error

	// Clear fills the whole texture with c.
	Clear(t DeviceTexture, c Color) error

	// Draw rasterizes call.Quad into dst, running call.Program per fragment.
	// Pixels outside the quad are left untouched.
	Draw(dst DeviceTexture, call *DrawCall) error

	// ReadPixels copies the texture into pix as straight-alpha RGBA in
	// storage row order.
	ReadPixels(t DeviceTexture, pix []byte) error

	// Release frees device-wide resources. The device is unusable afterwards.
	Release() error
}

// DeviceTexture is a backend texture handle.
type DeviceTexture interface {
	Size() (w, h int)
	Dispose()
}

// DeviceProgram is a backend program handle.
type DeviceProgram interface {
	Dispose()
}

// DrawCall describes one pass: a program, up to four input textures, the
// quad geometry and the uniform values in effect.
type DrawCall struct {
	Program  DeviceProgram
	Inputs   []DeviceTexture
	Quad     Quad
	Uniforms map[string]any
}

// DeviceFactory creates a fresh device. Every off-screen surface owns its own
// device, so factories must not return shared instances.
type DeviceFactory func() (Device, error)

// Vec2 is a texture coordinate.
type Vec2 struct {
	X, Y float32
}

// Vec4 is a straight-alpha color in [0, 1].
type Vec4 struct {
	R, G, B, A float32
}

func (v Vec4) add(o Vec4) Vec4 {
	return Vec4{v.R + o.R, v.G + o.G, v.B + o.B, v.A + o.A}
}

func (v Vec4) scale(s float32) Vec4 {
	return Vec4{v.R * s, v.G * s, v.B * s, v.A * s}
}

// Sampler gives a kernel access to its input textures.
type Sampler interface {
	// Sample reads input i at uv with linear filtering and edge clamping.
	Sample(i int, uv Vec2) Vec4
	// Inputs returns the number of bound inputs.
	Inputs() int
}

// Kernel is the CPU form of a fragment program: it returns the color of the
// fragment at texture coordinate uv.
type Kernel func(s Sampler, uv Vec2, u Uniforms) Vec4

// Uniforms is the uniform set passed to a kernel.
type Uniforms map[string]any

// Float returns a float uniform, or 0 if it is unset.
func (u Uniforms) Float(name string) float32 {
	switch v := u[name].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	}
	return 0
}

// Floats returns an array uniform, or nil if it is unset.
func (u Uniforms) Floats(name string) []float32 {
	v, _ := u[name].([]float32)
	return v
}
