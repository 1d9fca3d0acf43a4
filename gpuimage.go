package gpuimage

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorBlack is the default clear color of a render target.
var ColorBlack = Color{0, 0, 0, 1}

// ColorTransparent clears intermediate targets.
var ColorTransparent = Color{}

// toNRGBA converts a gpuimage Color to a straight-alpha color.NRGBA.
func (c Color) toNRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R)*255 + 0.5),
		G: uint8(clamp01(c.G)*255 + 0.5),
		B: uint8(clamp01(c.B)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Size is a pixel size of a render target or image.
type Size struct {
	Width, Height int
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// ScaleType selects how a source image is fitted into a differently shaped
// output surface.
type ScaleType uint8

const (
	ScaleCrop ScaleType = iota // scale to cover the output, clipping the overflow
	ScaleFit                   // scale to fit inside the output, letterboxing the rest
)

// String returns the lower-case name of the scale type.
func (s ScaleType) String() string {
	switch s {
	case ScaleCrop:
		return "crop"
	case ScaleFit:
		return "fit"
	default:
		return fmt.Sprintf("ScaleType(%d)", uint8(s))
	}
}

// ParseScaleType parses "crop" or "fit" (case-insensitive).
func ParseScaleType(s string) (ScaleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crop", "center_crop", "center-crop":
		return ScaleCrop, nil
	case "fit", "center_inside", "center-inside":
		return ScaleFit, nil
	default:
		return ScaleCrop, fmt.Errorf("gpuimage: unknown scale type %q", s)
	}
}

var (
	// ErrInvalidRotation is returned when an angle is not one of 0, 90, 180 or 270.
	ErrInvalidRotation = errors.New("gpuimage: rotation must be 0, 90, 180 or 270 degrees")

	// ErrContextNotCurrent is returned when a graphics call is issued with a
	// frame that is not the one currently executing on its context.
	ErrContextNotCurrent = errors.New("gpuimage: graphics context is not current on this goroutine")

	// ErrSelfWait is returned when a blocking operation is requested from the
	// context's own goroutine, where waiting would deadlock.
	ErrSelfWait = errors.New("gpuimage: blocking call from the context goroutine")

	// ErrSurfaceClosed is returned by operations on a closed surface or context.
	ErrSurfaceClosed = errors.New("gpuimage: surface is closed")

	// ErrNoImage is returned when a snapshot is requested without a source image.
	ErrNoImage = errors.New("gpuimage: no source image")

	// ErrNoRenderer is returned when an off-screen surface has no renderer.
	ErrNoRenderer = errors.New("gpuimage: renderer was not set")

	// ErrInvalidSize is returned for zero or negative dimensions.
	ErrInvalidSize = errors.New("gpuimage: invalid size")

	// ErrFilterDestroyed is returned when drawing a destroyed filter.
	ErrFilterDestroyed = errors.New("gpuimage: filter is destroyed")

	// ErrNoGameLoop is returned by Ebitengine read-backs made before a View
	// has started running, and by configs that pick the ebiten backend for
	// headless use.
	ErrNoGameLoop = errors.New("gpuimage: ebiten backend needs a running game loop")
)
