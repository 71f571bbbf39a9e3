package cinder

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in a playback script.
type scriptStep struct {
	Action string `json:"action"`
	Label  string `json:"label,omitempty"`
	Frames int    `json:"frames,omitempty"`
}

// scriptFile is the top-level JSON structure for a playback script.
type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptHost is what a Script drives: usually a game holding an Effect and
// a Screenshots queue.
type ScriptHost interface {
	Activate() error
	Deactivate()
	Screenshot(label string)
	// Running reports whether a playback is in flight.
	Running() bool
}

// Script sequences activations, cancellations and screenshots across frames
// for automated visual checks of the burn. Call Step once per Update.
//
//	{"steps": [
//	  {"action": "activate"},
//	  {"action": "wait", "frames": 30},
//	  {"action": "screenshot", "label": "mid-burn"},
//	  {"action": "waitDone"},
//	  {"action": "screenshot", "label": "restored"}
//	]}
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	waitDone  bool
	done      bool
	err       error
}

var scriptActions = map[string]bool{
	"activate":   true,
	"deactivate": true,
	"wait":       true,
	"waitDone":   true,
	"screenshot": true,
}

// LoadScript parses a JSON playback script.
func LoadScript(jsonData []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range f.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: f.Steps}, nil
}

// Done reports whether all steps have been executed.
func (s *Script) Done() bool {
	return s.done
}

// Err returns the first error an activate step reported.
func (s *Script) Err() error {
	return s.err
}

// Step advances the script by one frame.
func (s *Script) Step(h ScriptHost) {
	if s.done {
		return
	}
	if s.waitDone {
		if h.Running() {
			return
		}
		s.waitDone = false
	}
	// Count down wait frames.
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}

	st := s.steps[s.cursor]
	s.cursor++

	switch st.Action {
	case "activate":
		if err := h.Activate(); err != nil && s.err == nil {
			s.err = fmt.Errorf("step %d: %w", s.cursor-1, err)
		}
	case "deactivate":
		h.Deactivate()
	case "screenshot":
		h.Screenshot(st.Label)
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "waitDone":
		s.waitDone = h.Running()
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 && !s.waitDone {
		s.done = true
	}
}
