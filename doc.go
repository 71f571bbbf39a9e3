// Package cinder is a procedural burn transition for [Ebitengine].
//
// Cinder snapshots a rectangle of your interface, hides it, and burns the
// snapshot away from the bottom up: an irregular flame front driven by
// fractal noise, embers and glow at the edge, heat haze ahead of it and
// cooling ash behind. After a short linger the region is shown again and your
// completion callback runs, exactly once, whether the burn finished, was
// cancelled or failed.
//
// # Quick start
//
// Drive a [Loop] from your game's Update, draw a [Layer] over the screen,
// and activate an [Effect] over a [Region]:
//
//	loop := cinder.NewLoop(nil)
//	layer := cinder.NewLayer()
//	fx, err := cinder.NewEffect(cinder.Options{
//		Config:    cinder.DefaultConfig(),
//		Device:    &cinder.EbitenDevice{},
//		Capturer:  &cinder.ScreenCapturer{Loop: loop},
//		Scheduler: loop,
//		Overlay:   layer,
//	})
//
//	box := cinder.NewTarget(image.Rect(40, 40, 340, 240), paintBox)
//	fx.Activate(box, func() { log.Println("gone") })
//
//	func (g *Game) Update() error        { return g.loop.Update() }
//	func (g *Game) Draw(s *ebiten.Image) {
//		if g.box.Visible() {
//			g.drawBox(s)
//		}
//		g.layer.Draw(s)
//	}
//
// An Effect runs one playback at a time. If several Effects can target the
// same region, keep an in-flight flag on the caller side.
//
// # Pieces
//
// [FractalNoise] and [Shade] are the CPU reference of the shading model; the
// Kage program compiled by [EbitenDevice] computes the same colors on the
// GPU. [SoftDevice] runs [Shade] on the CPU for offline rendering and tests.
// [Session] owns the objects of one playback, [Timeline] maps wall-clock
// time to progress through a [gween] tween, and [Effect] is the state machine
// tying them together.
//
// The cinder command renders a burn to PNG frames or a GIF, or plays it in a
// window:
//
//	cinder render card.png --gif burn.gif
//	cinder play card.png --script steps.json
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package cinder
