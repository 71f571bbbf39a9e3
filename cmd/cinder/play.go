package main

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phanxgames/cinder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	playRegion     string
	playScript     string
	playScreenshot string
	playHUD        bool
)

// playCmd plays the burn in a window.
var playCmd = &cobra.Command{
	Use:   "play [image]",
	Short: "Play the burn of an image in a window",
	Long: `Opens a window showing the image. Space burns the region, Escape cancels
a burn in flight. With --script, a JSON step script drives the window and it
closes when the script is done.

Example script:
  {"steps": [
    {"action": "activate"},
    {"action": "wait", "frames": 60},
    {"action": "screenshot", "label": "mid-burn"},
    {"action": "waitDone"},
    {"action": "screenshot", "label": "restored"}
  ]}`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playRegion, "region", "", "Region to burn as x,y,w,h (default: whole image)")
	playCmd.Flags().StringVar(&playScript, "script", "", "JSON step script")
	playCmd.Flags().StringVar(&playScreenshot, "screenshots", "screenshots", "Directory for script screenshots")
	playCmd.Flags().BoolVar(&playHUD, "hud", false, "Show frame rate and playback state")
}

// playGame is the window's ebiten.Game. inFlight is the caller-side guard
// that keeps a second burn from starting over the same region.
type playGame struct {
	log    *zap.Logger
	loop   *cinder.Loop
	fx     *cinder.Effect
	layer  *cinder.Layer
	target *cinder.Target
	src    *ebiten.Image
	bg     cinder.Color
	shots  *cinder.Screenshots
	script *cinder.Script
	hud    *cinder.HUD

	inFlight bool
}

func runPlay(cmd *cobra.Command, args []string) error {
	img, err := loadImage(args[0])
	if err != nil {
		return err
	}
	region := img.Bounds()
	if playRegion != "" {
		if region, err = parseRegion(playRegion); err != nil {
			return err
		}
	}
	fxCfg, err := cfg.effectConfig()
	if err != nil {
		return err
	}

	g := &playGame{
		log:   logger,
		loop:  cinder.NewLoop(nil),
		layer: cinder.NewLayer(),
		src:   ebiten.NewImageFromImage(img),
		bg:    fxCfg.Background,
		shots: cinder.NewScreenshots(playScreenshot, logger),
	}
	g.layer.Background = fxCfg.Background
	b := img.Bounds()
	g.target = cinder.NewTarget(region, func(dst *ebiten.Image, geo ebiten.GeoM) {
		// The source image starts at b.Min in layout pixels.
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM.Translate(float64(b.Min.X), float64(b.Min.Y))
		op.GeoM.Concat(geo)
		dst.DrawImage(g.src, op)
	})

	if playScript != "" {
		data, err := os.ReadFile(playScript)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		if g.script, err = cinder.LoadScript(data); err != nil {
			return err
		}
	}

	g.fx, err = cinder.NewEffect(cinder.Options{
		Config:    fxCfg,
		Device:    &cinder.EbitenDevice{},
		Capturer:  &cinder.ScreenCapturer{Loop: g.loop},
		Scheduler: g.loop,
		Overlay:   g.layer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if playHUD {
		g.hud = cinder.NewHUD(g.fx)
	}

	ebiten.SetWindowSize(b.Dx(), b.Dy())
	ebiten.SetWindowTitle("cinder - " + args[0])
	if err := ebiten.RunGame(g); err != nil {
		return err
	}
	if g.script != nil {
		return g.script.Err()
	}
	return nil
}

// Activate starts a burn unless one is already in flight.
func (g *playGame) Activate() error {
	if g.inFlight {
		g.log.Debug("burn already in flight")
		return nil
	}
	if err := g.fx.Activate(g.target, func() { g.inFlight = false }); err != nil {
		return err
	}
	g.inFlight = true
	return nil
}

// Deactivate cancels the burn in flight.
func (g *playGame) Deactivate() { g.fx.Deactivate() }

// Screenshot queues a capture of the next drawn frame.
func (g *playGame) Screenshot(label string) { g.shots.Queue(label) }

// Running reports whether a burn is in flight.
func (g *playGame) Running() bool { return g.inFlight }

func (g *playGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := g.Activate(); err != nil {
			g.log.Error("activate", zap.Error(err))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.Deactivate()
	}
	if g.script != nil {
		g.script.Step(g)
		if g.script.Done() && !g.inFlight && g.shots.Pending() == 0 {
			return ebiten.Termination
		}
	}
	return g.loop.Update()
}

func (g *playGame) Draw(screen *ebiten.Image) {
	screen.Fill(g.bg.NRGBA())
	screen.DrawImage(g.src, nil)
	if !g.target.Visible() {
		screen.SubImage(g.target.Bounds()).(*ebiten.Image).Fill(g.bg.NRGBA())
	}
	g.layer.Draw(screen)
	for _, p := range g.shots.Flush(screen) {
		g.log.Info("screenshot", zap.String("path", p))
	}
	if g.hud != nil {
		g.hud.Draw(screen)
	}
}

func (g *playGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.src.Bounds()
	return b.Dx(), b.Dy()
}

var _ cinder.ScriptHost = (*playGame)(nil)
