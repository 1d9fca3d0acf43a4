package gpuimage

import (
	"fmt"
	"strings"
)

// --- Kage shader sources ---
// All shaders use //kage:unit pixels. Ebitengine images hold premultiplied
// alpha, so shaders that work on straight color un-premultiply first and
// re-premultiply on output. Uniform offsets are given as fractions of the
// source size and converted to pixels inside the shader.
//
// Each source is paired with a kernel that computes the same fragment on
// straight-alpha colors for the software device.

// linearAtFunc samples the first input bilinearly between texel centers,
// clamping texel indices at the edges. imageSrc0UnsafeAt alone is
// nearest-neighbour, so fractional offsets would skip texels.
const linearAtFunc = `
func linearAt(pos vec2) vec4 {
	origin := imageSrc0Origin()
	hi := imageSrc0Size() - vec2(1)
	p := pos - origin - vec2(0.5)
	base := floor(p)
	f := p - base
	c00 := imageSrc0UnsafeAt(origin + clamp(base, vec2(0), hi) + vec2(0.5))
	c10 := imageSrc0UnsafeAt(origin + clamp(base+vec2(1, 0), vec2(0), hi) + vec2(0.5))
	c01 := imageSrc0UnsafeAt(origin + clamp(base+vec2(0, 1), vec2(0), hi) + vec2(0.5))
	c11 := imageSrc0UnsafeAt(origin + clamp(base+vec2(1, 1), vec2(0), hi) + vec2(0.5))
	return mix(mix(c00, c10, f.x), mix(c01, c11, f.x), f.y)
}
`

const identityShaderSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return imageSrc0UnsafeAt(src)
}
`

const brightnessShaderSrc = `//kage:unit pixels
package main

var Brightness float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0UnsafeAt(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	rgb := clamp(c.rgb+vec3(Brightness), vec3(0), vec3(1))
	return vec4(rgb*c.a, c.a)
}
`

const convolution3x3ShaderSrc = `//kage:unit pixels
package main

var TexelWidth float
var TexelHeight float
var ConvolutionMatrix [9]float
` + linearAtFunc + `
func Fragment(dst vec4, src vec2, color vec4) vec4 {
	step := vec2(TexelWidth, TexelHeight) * imageSrc0Size()
	center := linearAt(src)
	sum := linearAt(src+vec2(-step.x, -step.y)).rgb * ConvolutionMatrix[0]
	sum += linearAt(src+vec2(0, -step.y)).rgb * ConvolutionMatrix[1]
	sum += linearAt(src+vec2(step.x, -step.y)).rgb * ConvolutionMatrix[2]
	sum += linearAt(src+vec2(-step.x, 0)).rgb * ConvolutionMatrix[3]
	sum += center.rgb * ConvolutionMatrix[4]
	sum += linearAt(src+vec2(step.x, 0)).rgb * ConvolutionMatrix[5]
	sum += linearAt(src+vec2(-step.x, step.y)).rgb * ConvolutionMatrix[6]
	sum += linearAt(src+vec2(0, step.y)).rgb * ConvolutionMatrix[7]
	sum += linearAt(src+vec2(step.x, step.y)).rgb * ConvolutionMatrix[8]
	return vec4(clamp(sum, vec3(0), vec3(center.a)), center.a)
}
`

const boxBlurShaderSrc = `//kage:unit pixels
package main

var TexelWidthOffset float
var TexelHeightOffset float
` + linearAtFunc + `
func Fragment(dst vec4, src vec2, color vec4) vec4 {
	offset := vec2(TexelWidthOffset, TexelHeightOffset) * imageSrc0Size()
	sum := linearAt(src) * 0.2
	sum += linearAt(src+offset*1.5) * 0.2
	sum += linearAt(src-offset*1.5) * 0.2
	sum += linearAt(src+offset*3.5) * 0.2
	sum += linearAt(src-offset*3.5) * 0.2
	return sum
}
`

// Two-input shaders read the overlay at the same position relative to its
// own origin. The overlay is always resampled to the size of input 0.

const dissolveBlendShaderSrc = `//kage:unit pixels
package main

var MixturePercent float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c1 := imageSrc0UnsafeAt(src)
	c2 := imageSrc1UnsafeAt(src - imageSrc0Origin() + imageSrc1Origin())
	return mix(c1, c2, MixturePercent)
}
`

const alphaBlendShaderSrc = `//kage:unit pixels
package main

var MixturePercent float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c1 := imageSrc0UnsafeAt(src)
	c2 := imageSrc1UnsafeAt(src - imageSrc0Origin() + imageSrc1Origin())
	if c1.a > 0 {
		c1.rgb /= c1.a
	}
	if c2.a > 0 {
		c2.rgb /= c2.a
	}
	rgb := mix(c1.rgb, c2.rgb, c2.a*MixturePercent)
	return vec4(rgb*c1.a, c1.a)
}
`

const dilationShaderHeader = `//kage:unit pixels
package main

var TexelWidthOffset float
var TexelHeightOffset float
` + linearAtFunc + `
func Fragment(dst vec4, src vec2, color vec4) vec4 {
	offset := vec2(TexelWidthOffset, TexelHeightOffset) * imageSrc0Size()
	v := linearAt(src).r
`

// --- Programs ---

var (
	identityShader = &ShaderSource{
		Name: "identity",
		Kage: identityShaderSrc,
		Kernel: func(s Sampler, uv Vec2, _ Uniforms) Vec4 {
			return s.Sample(0, uv)
		},
	}

	brightnessShader = &ShaderSource{
		Name: "brightness",
		Kage: brightnessShaderSrc,
		Kernel: func(s Sampler, uv Vec2, u Uniforms) Vec4 {
			c := s.Sample(0, uv)
			b := u.Float("Brightness")
			return Vec4{clampf(c.R + b), clampf(c.G + b), clampf(c.B + b), c.A}
		},
	}

	convolution3x3Shader = &ShaderSource{
		Name:   "convolution3x3",
		Kage:   convolution3x3ShaderSrc,
		Kernel: convolution3x3Kernel,
	}

	boxBlurShader = &ShaderSource{
		Name:   "boxblur",
		Kage:   boxBlurShaderSrc,
		Kernel: boxBlurKernel,
	}

	dissolveBlendShader = &ShaderSource{
		Name: "dissolve",
		Kage: dissolveBlendShaderSrc,
		Kernel: func(s Sampler, uv Vec2, u Uniforms) Vec4 {
			m := u.Float("MixturePercent")
			return s.Sample(0, uv).scale(1 - m).add(s.Sample(1, uv).scale(m))
		},
	}

	alphaBlendShader = &ShaderSource{
		Name: "alphablend",
		Kage: alphaBlendShaderSrc,
		Kernel: func(s Sampler, uv Vec2, u Uniforms) Vec4 {
			c1 := s.Sample(0, uv)
			c2 := s.Sample(1, uv)
			m := c2.A * u.Float("MixturePercent")
			return Vec4{
				R: lerp(c1.R, c2.R, m),
				G: lerp(c1.G, c2.G, m),
				B: lerp(c1.B, c2.B, m),
				A: c1.A,
			}
		},
	}

	// dilationShaders holds the fixed variants for radius 1 through 4.
	dilationShaders = [4]*ShaderSource{
		dilationShader(1),
		dilationShader(2),
		dilationShader(3),
		dilationShader(4),
	}
)

func convolution3x3Kernel(s Sampler, uv Vec2, u Uniforms) Vec4 {
	m := u.Floats("ConvolutionMatrix")
	if len(m) != 9 {
		return s.Sample(0, uv)
	}
	tw, th := u.Float("TexelWidth"), u.Float("TexelHeight")
	center := s.Sample(0, uv)
	var sum Vec4
	k := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c := center
			if dx != 0 || dy != 0 {
				c = s.Sample(0, Vec2{uv.X + float32(dx)*tw, uv.Y + float32(dy)*th})
			}
			sum = sum.add(c.scale(m[k]))
			k++
		}
	}
	return Vec4{clampf(sum.R), clampf(sum.G), clampf(sum.B), center.A}
}

var boxBlurTaps = [...]float32{0, 1.5, -1.5, 3.5, -3.5}

func boxBlurKernel(s Sampler, uv Vec2, u Uniforms) Vec4 {
	ox, oy := u.Float("TexelWidthOffset"), u.Float("TexelHeightOffset")
	var sum Vec4
	for _, t := range boxBlurTaps {
		sum = sum.add(s.Sample(0, Vec2{uv.X + ox*t, uv.Y + oy*t}).scale(0.2))
	}
	return sum
}

// dilationShader builds the variant that reads the center and the taps at
// ±1..±radius along the pass offset, keeping the maximum red intensity.
func dilationShader(radius int) *ShaderSource {
	var b strings.Builder
	b.WriteString(dilationShaderHeader)
	for i := 1; i <= radius; i++ {
		fmt.Fprintf(&b, "\tv = max(v, linearAt(src+offset*%d.0).r)\n", i)
		fmt.Fprintf(&b, "\tv = max(v, linearAt(src-offset*%d.0).r)\n", i)
	}
	b.WriteString("\treturn vec4(vec3(v), 1)\n}\n")

	return &ShaderSource{
		Name: fmt.Sprintf("dilation%d", radius),
		Kage: b.String(),
		Kernel: func(s Sampler, uv Vec2, u Uniforms) Vec4 {
			ox, oy := u.Float("TexelWidthOffset"), u.Float("TexelHeightOffset")
			v := s.Sample(0, uv).R
			for i := 1; i <= radius; i++ {
				k := float32(i)
				v = max(v, s.Sample(0, Vec2{uv.X + ox*k, uv.Y + oy*k}).R)
				v = max(v, s.Sample(0, Vec2{uv.X - ox*k, uv.Y - oy*k}).R)
			}
			return Vec4{v, v, v, 1}
		},
	}
}
