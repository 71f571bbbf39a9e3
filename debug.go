package cinder

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// playbackStats holds timing and draw metrics for one playback.
type playbackStats struct {
	captureTime time.Duration
	setupTime   time.Duration
	renderTime  time.Duration
	frames      int
	slowest     time.Duration
}

// addFrame records one Render call.
func (s *playbackStats) addFrame(d time.Duration) {
	s.frames++
	s.renderTime += d
	if d > s.slowest {
		s.slowest = d
	}
}

// averageFrame returns the mean render time, or 0 before the first frame.
func (s *playbackStats) averageFrame() time.Duration {
	if s.frames == 0 {
		return 0
	}
	return s.renderTime / time.Duration(s.frames)
}

// MarshalLogObject lets the stats be logged as one zap.Object field.
func (s playbackStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddDuration("capture", s.captureTime)
	enc.AddDuration("setup", s.setupTime)
	enc.AddInt("frames", s.frames)
	enc.AddDuration("render", s.renderTime)
	enc.AddDuration("avgFrame", s.averageFrame())
	enc.AddDuration("slowestFrame", s.slowest)
	return nil
}

// debugLogFrame logs a frame at debug level. Checked first so the fields are
// only built when debug logging is on.
func debugLogFrame(log *zap.Logger, index int, elapsed time.Duration, progress float64, took time.Duration) {
	if ce := log.Check(zap.DebugLevel, "frame"); ce != nil {
		ce.Write(
			zap.Int("index", index),
			zap.Duration("elapsed", elapsed),
			zap.Float64("progress", progress),
			zap.Duration("took", took),
		)
	}
}
