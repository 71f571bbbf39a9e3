package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/phanxgames/cinder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	renderOut     string
	renderGIF     string
	renderRegion  string
	renderDensity float64
	renderFPS     int
)

// renderCmd renders a playback offline on the CPU.
var renderCmd = &cobra.Command{
	Use:   "render [image]",
	Short: "Render the burn of an image to PNG frames and/or a GIF",
	Long: `Runs a full playback on the CPU with a simulated clock and writes every
frame. The last frame is held for the linger time.

Example:
  cinder render card.png --gif burn.gif --region 20,20,300,200`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Directory for numbered PNG frames")
	renderCmd.Flags().StringVar(&renderGIF, "gif", "", "Animated GIF output path")
	renderCmd.Flags().StringVar(&renderRegion, "region", "", "Region to burn as x,y,w,h (default: whole image)")
	renderCmd.Flags().Float64Var(&renderDensity, "density", 1, "Device pixels per image pixel")
	renderCmd.Flags().IntVar(&renderFPS, "fps", 0, "Frame rate (overrides the config file)")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := loadImage(args[0])
	if err != nil {
		return err
	}
	region := src.Bounds()
	if renderRegion != "" {
		if region, err = parseRegion(renderRegion); err != nil {
			return err
		}
	}
	if renderOut == "" && renderGIF == "" {
		renderGIF = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_burn.gif"
	}

	fxCfg, err := cfg.effectConfig()
	if err != nil {
		return err
	}
	seq, err := cinder.NewSequence(renderOut, renderGIF)
	if err != nil {
		return err
	}

	if renderFPS > 0 {
		cfg.FPS = renderFPS
	}
	interval := cfg.frameInterval()
	clock := cinder.NewManualClock(time.Unix(0, 0))
	loop := cinder.NewLoop(clock)

	// Each frame is written when the next one arrives, so the last can be
	// held for the linger.
	var held image.Image
	var frameErr error
	onFrame := func(f cinder.Frame) {
		img, err := cinder.SurfaceImage(f.Surface)
		if err != nil {
			frameErr = err
			return
		}
		if held != nil && frameErr == nil {
			frameErr = seq.Add(held, interval)
		}
		held = img
	}

	fx, err := cinder.NewEffect(cinder.Options{
		Config:    fxCfg,
		Device:    cinder.NewSoftDevice(renderDensity),
		Capturer:  &cinder.ImageCapturer{Source: src},
		Scheduler: loop,
		Logger:    logger,
		OnFrame:   onFrame,
	})
	if err != nil {
		return err
	}

	done := false
	target := cinder.NewTarget(region, nil)
	if err := fx.Activate(target, func() { done = true }); err != nil {
		return err
	}
	logger.Info("rendering",
		zap.String("image", args[0]),
		zap.Stringer("region", region),
		zap.Duration("frameInterval", interval),
	)

	if err := drive(ctx, fx, loop, clock, interval, func() bool { return done }); err != nil {
		return err
	}
	if frameErr != nil {
		return frameErr
	}
	if held != nil {
		if err := seq.Add(held, interval+fxCfg.Linger); err != nil {
			return err
		}
	}
	if err := seq.Close(); err != nil {
		return err
	}
	if seq.Frames() == 0 {
		return fmt.Errorf("no frames rendered (see log)")
	}
	logger.Info("wrote frames",
		zap.Int("frames", seq.Frames()),
		zap.String("dir", renderOut),
		zap.String("gif", renderGIF),
	)
	return nil
}

// drive ticks loop on a simulated clock until done reports true. While the
// capture is in flight it blocks until the capture goroutine posts back.
func drive(ctx context.Context, fx *cinder.Effect, loop *cinder.Loop, clock *cinder.ManualClock, step time.Duration, done func() bool) error {
	for !done() {
		if fx.State() == cinder.StateCapturing && loop.Pending() == 0 {
			select {
			case <-loop.Wake():
			case <-ctx.Done():
				fx.Deactivate()
				return ctx.Err()
			}
		} else {
			clock.Advance(step)
		}
		if err := ctx.Err(); err != nil {
			fx.Deactivate()
			return err
		}
		loop.Tick()
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// parseRegion parses "x,y,w,h".
func parseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q: width and height must be positive", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
