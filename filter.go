package gpuimage

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FilterKind selects how a filter's passes are composed.
type FilterKind uint8

const (
	// FilterSingle draws one pass from the input into the destination.
	FilterSingle FilterKind = iota
	// FilterTwoPass draws a horizontal pass into an intermediate texture and a
	// vertical pass from it into the destination.
	FilterTwoPass
	// FilterTwoInput draws one pass reading the input and an overlay image.
	FilterTwoInput
	// FilterGroup chains child filters through intermediate textures.
	FilterGroup
)

func (k FilterKind) String() string {
	switch k {
	case FilterSingle:
		return "single"
	case FilterTwoPass:
		return "two-pass"
	case FilterTwoInput:
		return "two-input"
	case FilterGroup:
		return "group"
	default:
		return fmt.Sprintf("FilterKind(%d)", uint8(k))
	}
}

type filterState uint8

const (
	filterConstructed filterState = iota
	filterInitialized
	filterFailed
	filterDestroyed
)

// filterPass is one program together with the uniform values uploaded to it.
type filterPass struct {
	program  *Program
	uniforms map[string]any
}

// filterParams holds the user-settable parameters of a filter.
type filterParams struct {
	scalars map[string]float32
	matrix  []float32

	// Texel spacing multipliers of the two passes of a separable filter.
	ratioH, ratioV float32

	// 3x3 sampling.
	lineSize      float32
	texelOverride bool
	texelW        float32
	texelH        float32

	overlay    *image.NRGBA
	overlayGen uint64
}

func (p filterParams) clone() filterParams {
	c := p
	c.scalars = make(map[string]float32, len(p.scalars))
	for k, v := range p.scalars {
		c.scalars[k] = v
	}
	c.matrix = slices.Clone(p.matrix)
	return c
}

// Filter is a GPU image filter: one or more shader passes with their
// parameters. Parameter setters may be called from any goroutine; the values
// are applied on the context goroutine at the start of the next Draw.
//
// Init, OutputSizeChanged, Draw and Destroy must be called with a current
// Frame. A filter instance belongs to a single context at a time; use Clone to
// render the same filter elsewhere.
type Filter struct {
	name        string
	kind        FilterKind
	sources     []*ShaderSource
	sampling3x3 bool
	radius      int
	children    []*Filter

	mu     sync.Mutex
	params filterParams
	dirty  bool

	// Context-goroutine state.
	state        filterState
	initErr      error
	passes       []*filterPass
	passThrough  *Program
	outW, outH   int
	intermediate *Texture
	overlayTex   *Texture
	overlayFit   *Texture
	overlayGen   uint64
	pool         texturePool
}

func newFilter(name string, kind FilterKind, sources ...*ShaderSource) *Filter {
	return &Filter{
		name:    name,
		kind:    kind,
		sources: sources,
		params:  filterParams{scalars: make(map[string]float32)},
		dirty:   true,
		pool:    texturePool{owner: name},
	}
}

// Name returns the filter name used in logs.
func (fl *Filter) Name() string { return fl.name }

// Kind returns the filter's composition kind.
func (fl *Filter) Kind() FilterKind { return fl.kind }

// Sources returns the shader sources of the filter's passes, in draw order.
// Groups have none of their own.
func (fl *Filter) Sources() []*ShaderSource { return slices.Clone(fl.sources) }

// Children returns the members of a group.
func (fl *Filter) Children() []*Filter { return slices.Clone(fl.children) }

// SetFloat sets a float uniform on every pass. Names a program does not
// declare are ignored. On a group the value is forwarded to every member.
func (fl *Filter) SetFloat(name string, v float32) {
	for _, c := range fl.children {
		c.SetFloat(name, v)
	}
	fl.update(func(p *filterParams) { p.scalars[name] = v })
}

// Float returns the value last set for a float uniform.
func (fl *Filter) Float(name string) (float32, bool) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	v, ok := fl.params.scalars[name]
	return v, ok
}

func (fl *Filter) update(fn func(p *filterParams)) {
	fl.mu.Lock()
	fn(&fl.params)
	fl.dirty = true
	fl.mu.Unlock()
}

// Clone returns an uninitialized filter with the same programs and a copy of
// the current parameters. It shares no GPU state with fl.
func (fl *Filter) Clone() *Filter {
	fl.mu.Lock()
	params := fl.params.clone()
	fl.mu.Unlock()

	c := newFilter(fl.name, fl.kind, fl.sources...)
	c.sampling3x3 = fl.sampling3x3
	c.radius = fl.radius
	c.params = params
	for _, child := range fl.children {
		c.children = append(c.children, child.Clone())
	}
	return c
}

// Initialized reports whether Init completed successfully and the filter has
// not been destroyed since.
func (fl *Filter) Initialized() bool { return fl.state == filterInitialized }

// OutputSize returns the size last passed to OutputSizeChanged.
func (fl *Filter) OutputSize() Size { return Size{fl.outW, fl.outH} }

// Init compiles the filter's programs. It is idempotent. A compile failure is
// returned as *CompileError and leaves the filter unusable: every later Init
// or Draw returns the same error until Reset.
func (fl *Filter) Init(f *Frame) error {
	switch fl.state {
	case filterInitialized:
		return nil
	case filterFailed:
		return fl.initErr
	}
	if _, err := f.device("init " + fl.name); err != nil {
		return err
	}

	for _, c := range fl.children {
		if err := c.Init(f); err != nil {
			return fl.fail(err)
		}
	}
	passes := make([]*filterPass, 0, len(fl.sources))
	for _, src := range fl.sources {
		p, err := compileProgram(f, src)
		if err != nil {
			for _, done := range passes {
				_ = done.program.Delete(f)
			}
			return fl.fail(err)
		}
		passes = append(passes, &filterPass{program: p, uniforms: make(map[string]any)})
	}
	if fl.kind == FilterTwoInput || fl.kind == FilterGroup {
		p, err := compileProgram(f, identityShader)
		if err != nil {
			for _, done := range passes {
				_ = done.program.Delete(f)
			}
			return fl.fail(err)
		}
		fl.passThrough = p
	}

	fl.passes = passes
	fl.state = filterInitialized
	fl.mu.Lock()
	fl.dirty = true
	fl.mu.Unlock()
	Logger().Info("filter initialized", zap.String("filter", fl.name), zap.Stringer("kind", fl.kind), zap.Int("passes", len(passes)))
	return nil
}

// fail records a compile failure. Other errors, such as a non-current frame,
// leave the filter retryable.
func (fl *Filter) fail(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		fl.state = filterFailed
		fl.initErr = err
	}
	return err
}

// OutputSizeChanged records the output size, recomputes size-dependent
// uniforms and drops intermediates of the old size.
func (fl *Filter) OutputSizeChanged(f *Frame, w, h int) error {
	if _, err := f.device("resize " + fl.name); err != nil {
		return err
	}
	if w == fl.outW && h == fl.outH {
		return nil
	}
	fl.outW, fl.outH = w, h
	fl.mu.Lock()
	fl.dirty = true
	fl.mu.Unlock()

	var err error
	for _, c := range fl.children {
		err = multierr.Append(err, c.OutputSizeChanged(f, w, h))
	}
	if fl.intermediate != nil {
		err = multierr.Append(err, fl.intermediate.Delete(f))
		fl.intermediate = nil
	}
	err = multierr.Append(err, fl.pool.Drain(f))
	return err
}

// Draw renders src into dst through every pass. coords places the first pass;
// later passes cover the whole destination.
func (fl *Filter) Draw(f *Frame, dst, src *Texture, coords Quad) error {
	switch fl.state {
	case filterDestroyed:
		return ErrFilterDestroyed
	case filterFailed:
		Logger().Debug("draw skipped: filter failed to compile", zap.String("filter", fl.name))
		return fl.initErr
	case filterConstructed:
		if err := fl.Init(f); err != nil {
			return err
		}
	}
	if _, err := f.device("draw " + fl.name); err != nil {
		return err
	}
	if fl.outW <= 0 || fl.outH <= 0 {
		if err := fl.OutputSizeChanged(f, dst.w, dst.h); err != nil {
			return err
		}
	}
	if err := fl.sync(f); err != nil {
		return err
	}

	switch fl.kind {
	case FilterTwoPass:
		return fl.drawTwoPass(f, dst, src, coords)
	case FilterTwoInput:
		return fl.drawTwoInput(f, dst, src, coords)
	case FilterGroup:
		return fl.drawGroup(f, dst, src, coords)
	default:
		return fl.drawPass(f, fl.passes[0], dst, coords, src)
	}
}

// sync applies parameter writes made since the last draw.
func (fl *Filter) sync(f *Frame) error {
	fl.mu.Lock()
	if !fl.dirty {
		fl.mu.Unlock()
		return nil
	}
	p := fl.params.clone()
	fl.dirty = false
	fl.mu.Unlock()

	for i, pass := range fl.passes {
		for name, v := range fl.uniformValues(p, i) {
			if _, ok := pass.program.Location(name); !ok {
				Logger().Debug("uniform not declared, skipped",
					zap.String("filter", fl.name), zap.String("program", pass.program.Name()), zap.String("uniform", name))
				continue
			}
			pass.uniforms[name] = v
		}
	}
	if fl.kind == FilterTwoInput && p.overlayGen != fl.overlayGen {
		return fl.uploadOverlay(f, p.overlay, p.overlayGen)
	}
	return nil
}

// uniformValues computes the uniform set of pass i from the parameters and
// the current output size.
func (fl *Filter) uniformValues(p filterParams, i int) map[string]any {
	u := make(map[string]any, len(p.scalars)+3)
	for k, v := range p.scalars {
		u[k] = v
	}
	if p.matrix != nil {
		u["ConvolutionMatrix"] = slices.Clone(p.matrix)
	}
	w, h := float32(fl.outW), float32(fl.outH)
	if w <= 0 || h <= 0 {
		return u
	}
	if fl.sampling3x3 {
		tw, th := p.lineSize/w, p.lineSize/h
		if p.texelOverride {
			tw, th = p.texelW, p.texelH
		}
		u["TexelWidth"] = tw
		u["TexelHeight"] = th
	}
	if fl.kind == FilterTwoPass {
		if i == 0 {
			u["TexelWidthOffset"] = p.ratioH / w
			u["TexelHeightOffset"] = float32(0)
		} else {
			u["TexelWidthOffset"] = float32(0)
			u["TexelHeightOffset"] = p.ratioV / h
		}
	}
	return u
}

// Uniforms returns a copy of the values uploaded to pass i.
func (fl *Filter) Uniforms(i int) map[string]any {
	if i < 0 || i >= len(fl.passes) {
		return nil
	}
	out := make(map[string]any, len(fl.passes[i].uniforms))
	for k, v := range fl.passes[i].uniforms {
		out[k] = v
	}
	return out
}

// drawPass issues one device draw.
func (fl *Filter) drawPass(f *Frame, p *filterPass, dst *Texture, q Quad, inputs ...*Texture) error {
	return drawProgram(f, p.program, dst, q, p.uniforms, inputs...)
}

func drawProgram(f *Frame, prog *Program, dst *Texture, q Quad, uniforms map[string]any, inputs ...*Texture) error {
	dev, err := f.device("draw " + prog.Name())
	if err != nil {
		return err
	}
	handles := make([]DeviceTexture, len(inputs))
	for i, in := range inputs {
		handles[i] = in.handle
	}
	if err := dev.Draw(dst.handle, &DrawCall{
		Program:  prog.handle,
		Inputs:   handles,
		Quad:     q,
		Uniforms: uniforms,
	}); err != nil {
		return fmt.Errorf("gpuimage: draw %s: %w", prog.Name(), err)
	}
	return nil
}

// Destroy releases the filter's programs and textures. It is idempotent.
func (fl *Filter) Destroy(f *Frame) error {
	if fl.state == filterDestroyed {
		return nil
	}
	if _, err := f.device("destroy " + fl.name); err != nil {
		return err
	}
	var err error
	for _, p := range fl.passes {
		err = multierr.Append(err, p.program.Delete(f))
	}
	err = multierr.Append(err, fl.passThrough.Delete(f))
	err = multierr.Append(err, fl.intermediate.Delete(f))
	err = multierr.Append(err, fl.overlayTex.Delete(f))
	err = multierr.Append(err, fl.overlayFit.Delete(f))
	err = multierr.Append(err, fl.pool.Drain(f))
	for _, c := range fl.children {
		err = multierr.Append(err, c.Destroy(f))
	}
	fl.resetGPU()
	fl.state = filterDestroyed
	Logger().Debug("filter destroyed", zap.String("filter", fl.name))
	return err
}

// Reset returns a destroyed or failed filter to the constructed state so it
// can be initialized again. A failed filter recompiles on the next Init.
func (fl *Filter) Reset() {
	switch fl.state {
	case filterDestroyed:
		fl.state = filterConstructed
	case filterFailed:
		fl.state = filterConstructed
		fl.initErr = nil
	}
	for _, c := range fl.children {
		c.Reset()
	}
}

// invalidate forgets every GPU handle without releasing it. It is used when
// the context that owned them is gone.
func (fl *Filter) invalidate() {
	for _, c := range fl.children {
		c.invalidate()
	}
	if fl.state != filterFailed {
		fl.state = filterConstructed
	}
	fl.resetGPU()
}

func (fl *Filter) resetGPU() {
	fl.passes = nil
	fl.passThrough = nil
	fl.intermediate = nil
	fl.overlayTex = nil
	fl.overlayFit = nil
	fl.overlayGen = 0
	fl.outW, fl.outH = 0, 0
	fl.pool = texturePool{owner: fl.name}
	fl.mu.Lock()
	fl.dirty = true
	fl.mu.Unlock()
}
