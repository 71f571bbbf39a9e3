package cinder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// Screenshots captures the game screen into timestamped PNG files. Queue
// labels from Update or Draw and call Flush at the end of Draw.
type Screenshots struct {
	// Dir is where files are written. Defaults to "screenshots".
	Dir string
	// Logger receives write failures. Defaults to zap.NewNop().
	Logger *zap.Logger

	queue []string
	now   func() time.Time
}

// NewScreenshots returns a Screenshots writing to dir.
func NewScreenshots(dir string, log *zap.Logger) *Screenshots {
	if dir == "" {
		dir = "screenshots"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Screenshots{Dir: dir, Logger: log, now: time.Now}
}

// Queue requests a screenshot of the current frame.
func (s *Screenshots) Queue(label string) {
	s.queue = append(s.queue, label)
}

// Pending returns the number of queued screenshots.
func (s *Screenshots) Pending() int { return len(s.queue) }

// Flush reads screen back and writes one PNG per queued label. It returns the
// paths written.
func (s *Screenshots) Flush(screen *ebiten.Image) []string {
	if len(s.queue) == 0 {
		return nil
	}
	defer func() { s.queue = s.queue[:0] }()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		s.Logger.Error("screenshot mkdir", zap.String("dir", s.Dir), zap.Error(err))
		return nil
	}

	bounds := screen.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	screen.ReadPixels(img.Pix)
	unpremultiply(img.Pix)

	stamp := s.now().Format("20060102_150405")
	paths := make([]string, 0, len(s.queue))
	for _, label := range s.queue {
		path := filepath.Join(s.Dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := WritePNG(path, img); err != nil {
			s.Logger.Error("screenshot", zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// WritePNG encodes an image to a PNG file at the given path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
