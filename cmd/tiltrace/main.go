package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/astrogo/fitsio"
	"go.uber.org/zap"

	"tiltrace/pkg/tiltrace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("tiltrace", flag.ContinueOnError)
	var (
		cfgPath   = fs.String("config", "", "YAML run configuration")
		arcPath   = fs.String("arc", "", "combined arc calibration exposure (FITS)")
		bpmPath   = fs.String("bpm", "", "bad-pixel mask (FITS, optional)")
		slitsPath = fs.String("slits", "", "slit edge traces (FITS with LEFT/RIGHT extensions)")
		outPath   = fs.String("out", "MasterTilts.fits", "output master tilts file")
		priorPath = fs.String("prior", "", "previously saved master tilts to inspect (optional)")
		strict    = fs.Bool("strict", false, "fail when the prior master file is missing")
		debug     = fs.Bool("debug", false, "enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *arcPath == "" || *slitsPath == "" {
		return fmt.Errorf("usage: tiltrace -arc <arc.fits> -slits <slits.fits> [-config cfg.yaml] [-out out.fits]")
	}

	var zapLogger *zap.Logger
	var err error
	if *debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	par := tiltrace.NewParams()
	if *cfgPath != "" {
		cfg, err := tiltrace.NewConfig(*cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if par, err = cfg.Params(); err != nil {
			return err
		}
	}

	if *priorPath != "" {
		prior, err := tiltrace.LoadMaster(*priorPath, *strict)
		switch {
		case errors.Is(err, tiltrace.ErrNoPriorState):
			log.Infow("no prior master tilts found", "path", *priorPath)
		case err != nil:
			return err
		default:
			good := 0
			for _, masked := range prior.MaskSlits {
				if !masked {
					good++
				}
			}
			log.Infow("loaded prior master tilts", "path", *priorPath,
				"slits", len(prior.MaskSlits), "good", good, "func2d", prior.Func2D)
		}
	}

	arc, err := loadFrame(*arcPath)
	if err != nil {
		return fmt.Errorf("loading arc exposure: %w", err)
	}
	fmt.Printf("Arc loaded: %dx%d\n", arc.Cols(), arc.Rows())

	var bpm *tiltrace.BoolMask
	if *bpmPath != "" {
		if bpm, err = loadMask(*bpmPath); err != nil {
			return fmt.Errorf("loading bad-pixel mask: %w", err)
		}
	}

	slits, err := loadSlits(*slitsPath)
	if err != nil {
		return fmt.Errorf("loading slit geometry: %w", err)
	}
	fmt.Printf("Slits loaded: %d\n", slits.NSlit())

	engine, err := tiltrace.NewEngine(arc, bpm, slits, par, log)
	if err != nil {
		return err
	}

	startTime := time.Now()
	res, err := engine.Run(context.Background(), nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(startTime)

	printSummary(res, elapsed)

	if err := tiltrace.SaveMaster(*outPath, res); err != nil {
		return err
	}
	fmt.Printf("Master tilts written: %s\n", *outPath)
	return nil
}

func printSummary(res *tiltrace.TiltResult, elapsed time.Duration) {
	masked := 0
	for _, m := range res.MaskSlits {
		if m {
			masked++
		}
	}
	fmt.Println()
	fmt.Printf("=== Tilt Tracing Results (%.1fs) ===\n", elapsed.Seconds())
	fmt.Printf("  Tilt map:  %d x %d\n", res.Tilts.Cols(), res.Tilts.Rows())
	fmt.Printf("  Slits:     %d (%d masked)\n", len(res.MaskSlits), masked)
	for _, s := range res.Slits {
		status := "ok"
		if s.Masked {
			status = s.Reason
		}
		fmt.Printf("  slit %3d: detected=%-3d selected=%-3d used=%-3d bad=%-2d  %s\n",
			s.Slit, s.Detected, s.Selected, s.Used, s.BadLines, status)
	}
	fmt.Println("==============================")
}

func loadFrame(path string) (*tiltrace.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("opening FITS: %w", err)
	}
	defer fits.Close()

	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("primary HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("primary HDU has %d axes, want 2", len(axes))
	}
	var data []float64
	if err := img.Read(&data); err != nil {
		return nil, fmt.Errorf("reading pixel data: %w", err)
	}
	return tiltrace.NewFrameFromData(data, axes[1], axes[0])
}

func loadMask(path string) (*tiltrace.BoolMask, error) {
	frame, err := loadFrame(path)
	if err != nil {
		return nil, err
	}
	mask := tiltrace.NewBoolMask(frame.Rows(), frame.Cols())
	for r := 0; r < frame.Rows(); r++ {
		for c := 0; c < frame.Cols(); c++ {
			mask.Set(r, c, frame.At(r, c) != 0)
		}
	}
	return mask, nil
}

// loadSlits reads slit edge curves from LEFT and RIGHT image extensions,
// each nslit rows of nspec samples.
func loadSlits(path string) (*tiltrace.SlitGeometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("opening FITS: %w", err)
	}
	defer fits.Close()

	left, err := readCurves(fits, "LEFT")
	if err != nil {
		return nil, err
	}
	righ, err := readCurves(fits, "RIGHT")
	if err != nil {
		return nil, err
	}
	if len(left) != len(righ) {
		return nil, fmt.Errorf("%d left curves vs %d right curves", len(left), len(righ))
	}
	return &tiltrace.SlitGeometry{Left: left, Right: righ}, nil
}

func readCurves(fits *fitsio.File, name string) ([][]float64, error) {
	for _, hdu := range fits.HDUs() {
		if hdu.Name() != name {
			continue
		}
		img, ok := hdu.(fitsio.Image)
		if !ok {
			return nil, fmt.Errorf("%s HDU is not an image", name)
		}
		axes := img.Header().Axes()
		if len(axes) != 2 {
			return nil, fmt.Errorf("%s HDU has %d axes, want 2", name, len(axes))
		}
		nspec, nslit := axes[0], axes[1]
		var flat []float64
		if err := img.Read(&flat); err != nil {
			return nil, fmt.Errorf("reading %s curves: %w", name, err)
		}
		curves := make([][]float64, nslit)
		for s := 0; s < nslit; s++ {
			curves[s] = flat[s*nspec : (s+1)*nspec]
		}
		return curves, nil
	}
	return nil, fmt.Errorf("no %s extension found", name)
}
