package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/phanxgames/gpuimage"
)

// filterSpec is one -f flag value: a chain of filters joined with "+",
// e.g. "brightness=0.2+blur=2". Arguments and overlay images are parsed once
// by Set; build only constructs filters.
type filterSpec struct {
	label string
	parts []filterMaker
}

// filterMaker constructs a fresh filter from already parsed arguments.
type filterMaker func() *gpuimage.Filter

// filterFlags collects repeated -f flags.
type filterFlags []filterSpec

func (f *filterFlags) String() string {
	labels := make([]string, len(*f))
	for i, s := range *f {
		labels[i] = s.label
	}
	return strings.Join(labels, ",")
}

func (f *filterFlags) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("empty filter")
	}
	spec := filterSpec{label: v}
	for _, p := range strings.Split(v, "+") {
		mk, err := parseFilter(p)
		if err != nil {
			return err
		}
		spec.parts = append(spec.parts, mk)
	}
	*f = append(*f, spec)
	return nil
}

// build returns fresh filters for the spec. Each image gets its own filter
// instances since ApplyFilters destroys them.
func (s filterSpec) build() *gpuimage.Filter {
	if len(s.parts) == 1 {
		return s.parts[0]()
	}
	filters := make([]*gpuimage.Filter, len(s.parts))
	for i, mk := range s.parts {
		filters[i] = mk()
	}
	return gpuimage.NewFilterGroup(filters...)
}

// parseFilter parses "name" or "name=arg" into a filter constructor.
func parseFilter(s string) (filterMaker, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), "=")
	name = strings.ToLower(name)

	float := func(def float64) (float32, error) {
		if !hasArg {
			return float32(def), nil
		}
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: bad value %q", name, arg)
		}
		return float32(v), nil
	}

	switch name {
	case "identity", "none":
		return gpuimage.NewIdentityFilter, nil
	case "brightness":
		v, err := float(0)
		if err != nil {
			return nil, err
		}
		return func() *gpuimage.Filter { return gpuimage.NewBrightnessFilter(v) }, nil
	case "sharpen":
		return gpuimage.NewSharpenFilter, nil
	case "emboss":
		v, err := float(1)
		if err != nil {
			return nil, err
		}
		return func() *gpuimage.Filter { return gpuimage.NewEmbossFilter(v) }, nil
	case "edge":
		return gpuimage.NewEdgeFilter, nil
	case "blur":
		v, err := float(1)
		if err != nil {
			return nil, err
		}
		return func() *gpuimage.Filter { return gpuimage.NewBoxBlurFilter(v) }, nil
	case "dilate", "dilation":
		r := 1
		if hasArg {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: bad radius %q", name, arg)
			}
			r = n
		}
		return func() *gpuimage.Filter { return gpuimage.NewDilationFilter(r) }, nil
	case "dissolve", "alpha":
		overlay, mix, err := parseOverlay(name, arg)
		if err != nil {
			return nil, err
		}
		if name == "dissolve" {
			return func() *gpuimage.Filter { return gpuimage.NewDissolveBlendFilter(overlay, mix) }, nil
		}
		return func() *gpuimage.Filter { return gpuimage.NewAlphaBlendFilter(overlay, mix) }, nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

// parseOverlay reads "path:mix". The mix defaults to 0.5.
func parseOverlay(name, arg string) (image.Image, float32, error) {
	if arg == "" {
		return nil, 0, fmt.Errorf("%s: overlay path required", name)
	}
	path, mix := arg, float32(0.5)
	if i := strings.LastIndex(arg, ":"); i > 0 {
		if v, err := strconv.ParseFloat(arg[i+1:], 32); err == nil {
			path, mix = arg[:i], float32(v)
		}
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}
	return img, mix, nil
}
