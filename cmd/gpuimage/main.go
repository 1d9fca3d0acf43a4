// Command gpuimage applies filter chains to image files.
//
//	gpuimage -f brightness=0.2 -f blur=2+sharpen -out filtered photo.jpg more/*.png
//
// Every -f flag produces one output per input file. Settings come from an
// optional YAML file (-config), then GPUIMAGE_* environment variables (also
// read from a .env file), then flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/phanxgames/gpuimage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	outDir     = flag.String("out", "filtered", "Destination directory")
	ext        = flag.String("ext", ".jpg", "Output format extension (.jpg, .png, .gif, .tif, .bmp)")
	maxSize    = flag.Int("max", 0, "Shrink inputs to fit inside max x max pixels before filtering (0 keeps the size)")
	workers    = flag.Int("conc", 0, "Number of files processed concurrently (0 uses the config value)")
	backend    = flag.String("backend", "", "Device backend (default from config); only software works without a window")
	verbose    = flag.Bool("v", false, "Debug logging")
	filters    filterFlags
)

func main() {
	flag.Var(&filters, "f", "Filter chain, repeatable: identity, brightness=B, sharpen, emboss=I, edge, blur=S, dilate=R, dissolve=PATH:MIX, alpha=PATH:MIX; join with +")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] FILE...\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(run())
}

func run() int {
	color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	failf := color.New(color.FgRed, color.Bold).SprintfFunc()
	okf := color.New(color.FgGreen).SprintfFunc()
	dimf := color.New(color.Faint).SprintfFunc()

	if flag.NArg() == 0 || len(filters) == 0 {
		flag.Usage()
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, failf("load .env: %v", err))
		return 1
	}
	cfg, err := gpuimage.LoadConfig(*configPath)
	if err == nil {
		err = cfg.ApplyEnv(nil)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err == nil {
		err = cfg.ValidateHeadless()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, failf("config: %v", err))
		return 1
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile, !color.NoColor)
	if err != nil {
		fmt.Fprintln(os.Stderr, failf("%v", err))
		return 1
	}
	defer func() { _ = logger.Sync() }()
	gpuimage.SetLogger(logger.Named("gpuimage"))

	opts, err := cfg.SurfaceOptions()
	if err != nil {
		logger.Error("surface options", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var written, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, path := range flag.Args() {
		g.Go(func() error {
			n, err := process(gctx, path, opts)
			written.Add(int32(n))
			if err != nil {
				failed.Add(1)
				fmt.Println(failf("✗ %s: %v", path, err))
				logger.Warn("process failed", zap.String("file", path), zap.Error(err))
				// Keep going with the other files unless interrupted.
				if errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}
			fmt.Println(okf("✓ %s", path), dimf("(%d outputs)", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("interrupted", zap.Error(err))
		return 130
	}

	fmt.Println(dimf("%d files written to %s in %s", written.Load(), *outDir, time.Since(start).Round(time.Millisecond)))
	if failed.Load() > 0 {
		return 1
	}
	return 0
}

// process filters one file with every -f chain and returns the number of
// images written.
func process(ctx context.Context, path string, opts []gpuimage.SurfaceOption) (int, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return 0, err
	}
	if *maxSize > 0 {
		if b := img.Bounds(); b.Dx() > *maxSize || b.Dy() > *maxSize {
			img = imaging.Fit(img, *maxSize, *maxSize, imaging.Lanczos)
		}
	}

	chain := make([]*gpuimage.Filter, len(filters))
	labels := make(map[*gpuimage.Filter]string, len(filters))
	for i, spec := range filters {
		fl := spec.build()
		chain[i] = fl
		labels[fl] = spec.label
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stamp := time.Now()
	n := 0
	err = gpuimage.ApplyFilters(ctx, img, chain, func(fl *gpuimage.Filter, out *image.NRGBA) error {
		dst := gpuimage.SnapshotPath(*outDir, base+"_"+labels[fl], *ext, stamp)
		if err := gpuimage.SaveImage(dst, out); err != nil {
			return err
		}
		n++
		return nil
	}, opts...)
	return n, err
}
