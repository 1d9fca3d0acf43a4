package gpuimage

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ParamTween animates one float uniform of a filter. Call Update(dt) each
// tick, or hand it to View.AddTween. The value is applied through the
// filter's queued parameter writes, so it takes effect on the next draw.
type ParamTween struct {
	tween  *gween.Tween
	filter *Filter
	name   string
	Done   bool
}

// NewParamTween animates the named uniform from its current value to `to`
// over duration seconds.
func NewParamTween(fl *Filter, name string, to, duration float32, fn ease.TweenFunc) *ParamTween {
	from, _ := fl.Float(name)
	return NewParamTweenFrom(fl, name, from, to, duration, fn)
}

// NewParamTweenFrom animates the named uniform between explicit bounds.
func NewParamTweenFrom(fl *Filter, name string, from, to, duration float32, fn ease.TweenFunc) *ParamTween {
	if fn == nil {
		fn = ease.Linear
	}
	return &ParamTween{
		tween:  gween.New(from, to, duration, fn),
		filter: fl,
		name:   name,
	}
}

// TweenMix animates the blend amount of a two-input filter.
func TweenMix(fl *Filter, to, duration float32, fn ease.TweenFunc) *ParamTween {
	return NewParamTween(fl, "MixturePercent", to, duration, fn)
}

// TweenBrightness animates a brightness filter.
func TweenBrightness(fl *Filter, to, duration float32, fn ease.TweenFunc) *ParamTween {
	return NewParamTween(fl, "Brightness", to, duration, fn)
}

// Update advances the tween by dt seconds and writes the value to the filter.
func (t *ParamTween) Update(dt float32) {
	if t.Done {
		return
	}
	val, finished := t.tween.Update(dt)
	t.filter.SetFloat(t.name, val)
	t.Done = finished
}

// Reset rewinds the tween to its start value.
func (t *ParamTween) Reset() {
	t.tween.Reset()
	t.Done = false
}
