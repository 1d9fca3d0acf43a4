package gpuimage

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"
)

// FrameStats holds timings of the last frame drawn by a Renderer.
type FrameStats struct {
	Frames      uint64 // frames drawn so far
	Tasks       int    // draw tasks run at the start of the frame
	EndTasks    int    // draw-end tasks run after the filter
	Filtered    bool   // the filter drew successfully
	TaskTime    time.Duration
	FilterTime  time.Duration
	EndTaskTime time.Duration
}

// Total is the time spent in DrawFrame.
func (s FrameStats) Total() time.Duration {
	return s.TaskTime + s.FilterTime + s.EndTaskTime
}

func (s FrameStats) String() string {
	return fmt.Sprintf("frame %d: tasks %d/%v filter %v end %d/%v total %v",
		s.Frames, s.Tasks, s.TaskTime, s.FilterTime, s.EndTasks, s.EndTaskTime, s.Total())
}

// SetDebug turns per-frame debug logging on or off.
func (r *Renderer) SetDebug(on bool) { r.debug.Store(on) }

// Stats returns the timings of the most recent frame.
func (r *Renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Renderer) recordStats(st FrameStats) {
	r.mu.Lock()
	st.Frames = r.stats.Frames + 1
	r.stats = st
	r.mu.Unlock()

	if !r.debug.Load() {
		return
	}
	Logger().Debug("frame",
		zap.Uint64("frame", st.Frames),
		zap.String("filter", r.filter.name),
		zap.Int("tasks", st.Tasks),
		zap.Int("end_tasks", st.EndTasks),
		zap.Bool("filtered", st.Filtered),
		zap.Duration("tasks_time", st.TaskTime),
		zap.Duration("filter_time", st.FilterTime),
		zap.Duration("end_tasks_time", st.EndTaskTime),
	)
}

// statsOverlay is a small panel showing FPS, TPS and the last frame time.
// It refreshes about twice a second.
type statsOverlay struct {
	img     *ebiten.Image
	elapsed float64
}

const statsRefresh = 0.5

func (o *statsOverlay) update(dt float64, st FrameStats) {
	if o.img == nil {
		// Room for three lines of debug text.
		o.img = ebiten.NewImage(140, 48)
		o.elapsed = statsRefresh
	}
	o.elapsed += dt
	if o.elapsed < statsRefresh {
		return
	}
	o.elapsed = 0
	o.img.Clear()
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nframe: %v",
		ebiten.ActualFPS(), ebiten.ActualTPS(), st.Total().Round(time.Microsecond)))
}

func (o *statsOverlay) draw(screen *ebiten.Image) {
	if o.img == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(screen.Bounds().Dx()-o.img.Bounds().Dx()), 0)
	screen.DrawImage(o.img, op)
}
