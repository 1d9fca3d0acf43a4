package gpuimage

import (
	"fmt"
	"image"
	"slices"
)

// NewIdentityFilter returns a filter that copies its input unchanged.
func NewIdentityFilter() *Filter {
	return newFilter("identity", FilterSingle, identityShader)
}

// NewBrightnessFilter adds b (typically -1..1) to the red, green and blue
// channels. Alpha is preserved.
func NewBrightnessFilter(b float32) *Filter {
	fl := newFilter("brightness", FilterSingle, brightnessShader)
	fl.params.scalars["Brightness"] = b
	return fl
}

// SetBrightness changes the brightness offset.
func (fl *Filter) SetBrightness(b float32) { fl.SetFloat("Brightness", b) }

// --- 3x3 sampling ---

// NewConvolution3x3Filter convolves the input with a row-major 3x3 kernel
// whose first row lies above the center texel.
func NewConvolution3x3Filter(kernel [9]float32) *Filter {
	fl := newFilter("convolution3x3", FilterSingle, convolution3x3Shader)
	fl.sampling3x3 = true
	fl.params.lineSize = 1
	fl.params.matrix = kernel[:]
	return fl
}

// NewSharpenFilter returns a 3x3 sharpening convolution.
func NewSharpenFilter() *Filter {
	fl := NewConvolution3x3Filter([9]float32{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	})
	fl.name = "sharpen"
	return fl
}

// NewEmbossFilter returns an emboss convolution of the given intensity.
func NewEmbossFilter(intensity float32) *Filter {
	i := intensity
	fl := NewConvolution3x3Filter([9]float32{
		-2 * i, -i, 0,
		-i, 1, i,
		0, i, 2 * i,
	})
	fl.name = "emboss"
	return fl
}

// NewEdgeFilter returns a Laplacian edge-detection convolution.
func NewEdgeFilter() *Filter {
	fl := NewConvolution3x3Filter([9]float32{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	})
	fl.name = "edge"
	return fl
}

// SetConvolutionKernel replaces the 3x3 kernel.
func (fl *Filter) SetConvolutionKernel(kernel [9]float32) {
	fl.update(func(p *filterParams) { p.matrix = slices.Clone(kernel[:]) })
}

// SetLineSize scales the sampling distance of a 3x3 filter, in texels.
func (fl *Filter) SetLineSize(size float32) {
	fl.update(func(p *filterParams) { p.lineSize = size })
}

// SetTexelSize fixes the 3x3 sampling offsets, as fractions of the input
// size, instead of deriving them from the output size.
func (fl *Filter) SetTexelSize(w, h float32) {
	fl.update(func(p *filterParams) {
		p.texelOverride = true
		p.texelW, p.texelH = w, h
	})
}

// --- separable two-pass ---

// NewBoxBlurFilter returns a separable box blur. size scales the spacing of
// the samples; 0 leaves the image unchanged.
func NewBoxBlurFilter(size float32) *Filter {
	fl := newFilter("boxblur", FilterTwoPass, boxBlurShader, boxBlurShader)
	fl.params.ratioH, fl.params.ratioV = size, size
	return fl
}

// SetBlurSize changes the sample spacing of a box blur.
func (fl *Filter) SetBlurSize(size float32) {
	fl.update(func(p *filterParams) { p.ratioH, p.ratioV = size, size })
}

// BlurSize returns the sample spacing of the horizontal and vertical passes.
func (fl *Filter) BlurSize() (h, v float32) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.params.ratioH, fl.params.ratioV
}

// NewDilationFilter returns a dilation that spreads the brightest red value
// radius texels in each direction. The radius is clamped to 1..4 and selects
// one of four fixed programs; it cannot be changed afterwards.
func NewDilationFilter(radius int) *Filter {
	r := min(max(radius, 1), len(dilationShaders))
	src := dilationShaders[r-1]
	fl := newFilter(fmt.Sprintf("dilation%d", r), FilterTwoPass, src, src)
	fl.radius = r
	fl.params.ratioH, fl.params.ratioV = 1, 1
	return fl
}

// Radius returns the dilation radius, or 0 for other filters.
func (fl *Filter) Radius() int { return fl.radius }

// --- two-input blends ---

// NewDissolveBlendFilter cross-fades from the input to overlay by mix (0..1).
func NewDissolveBlendFilter(overlay image.Image, mix float32) *Filter {
	return newBlendFilter("dissolve", dissolveBlendShader, overlay, mix)
}

// NewAlphaBlendFilter draws overlay over the input, weighted by the overlay's
// alpha times mix. The input alpha is kept.
func NewAlphaBlendFilter(overlay image.Image, mix float32) *Filter {
	return newBlendFilter("alphablend", alphaBlendShader, overlay, mix)
}

func newBlendFilter(name string, src *ShaderSource, overlay image.Image, mix float32) *Filter {
	fl := newFilter(name, FilterTwoInput, src)
	fl.params.scalars["MixturePercent"] = mix
	if overlay != nil {
		fl.params.overlay = toNRGBA(overlay)
		fl.params.overlayGen = 1
	}
	return fl
}

// SetMix changes the blend amount of a two-input filter.
func (fl *Filter) SetMix(mix float32) { fl.SetFloat("MixturePercent", mix) }

// SetOverlay replaces the second input of a two-input filter. The image is
// copied; nil removes the overlay.
func (fl *Filter) SetOverlay(overlay image.Image) {
	var img *image.NRGBA
	if overlay != nil {
		img = toNRGBA(overlay)
	}
	fl.update(func(p *filterParams) {
		p.overlay = img
		p.overlayGen++
	})
}

// --- groups ---

// NewFilterGroup chains filters: each member reads the previous member's
// output. The group owns its members.
func NewFilterGroup(filters ...*Filter) *Filter {
	fl := newFilter("group", FilterGroup)
	fl.children = slices.Clone(filters)
	return fl
}
