// Package gpuimage is a shader-based image filter pipeline for [Ebitengine].
//
// Filters are fragment programs compiled at runtime and composed into single
// pass, separable two-pass, two-input and grouped chains. A [Renderer] draws
// the current image through the active filter either into a live [View] (an
// [ebiten.Game]) or into an [OffscreenSurface] that returns an
// [image.NRGBA].
//
// # Quick start
//
// Filter an image without opening a window:
//
//	g := gpuimage.New()
//	g.SetFilter(gpuimage.NewBoxBlurFilter(2))
//	out, err := g.ApplyFilter(ctx, img)
//
// Show it live and animate a parameter:
//
//	fl := gpuimage.NewBrightnessFilter(0)
//	g := gpuimage.New(gpuimage.WithFilter(fl))
//	g.SetImage(img)
//	v := g.AttachView(nil)
//	v.AddTween(gpuimage.TweenBrightness(fl, 0.3, 1.5, ease.InOutQuad))
//	gpuimage.Run(v, gpuimage.RunConfig{Title: "preview", Width: 640, Height: 480})
//
// # Devices and contexts
//
// All drawing goes through a [Device]. The Ebitengine device runs Kage
// shaders on the GPU; the software device runs the same programs on the CPU
// against memory-backed targets, needs no display, and is the default for
// off-screen work.
//
// A device is owned by one [Context] goroutine. Work reaches it as queued
// tasks, and each turn of the goroutine opens a [Frame] that is the only
// token allowed to issue device calls. Calls made with a stale frame fail
// with [ErrContextNotCurrent]. Blocking calls made from the context goroutine
// fail with [ErrSelfWait] only when they are given the frame's
// [Frame.Context]; with an unrelated context.Context they block until that
// context is done.
//
// # Snapshots
//
// [GPUImage.ApplyFilter] and [GPUImage.FilteredImage] render through a fresh
// off-screen surface and a [Filter.Clone] of the active filter, so snapshots
// run concurrently with each other and with the live view.
//
// # Logging
//
// The package is silent by default. Install a [go.uber.org/zap] logger with
// [SetLogger].
//
// [Ebitengine]: https://ebitengine.org
package gpuimage
