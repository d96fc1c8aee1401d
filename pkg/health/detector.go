// Package health classifies agent panes and keeps per-worker telemetry used
// by escalation policy.
package health

import (
	"regexp"
	"strings"

	"jig/pkg/protocol"
)

// Liveness is the classification of a worker's pane text.
type Liveness int

// Liveness values. Stuck wins over Idle, Idle wins over Working.
const (
	Working Liveness = iota
	Idle
	Stuck
)

func (l Liveness) String() string {
	switch l {
	case Idle:
		return "idle"
	case Stuck:
		return "stuck"
	default:
		return "working"
	}
}

// promptTailLines is how many trailing non-blank lines are checked for a prompt.
const promptTailLines = 3

// DefaultPromptPatterns match an idle shell or agent prompt at end of line.
var DefaultPromptPatterns = []string{ //nolint:gochecknoglobals // exported defaults
	`❯\s*$`,
	`\$\s*$`,
	`#\s*$`,
}

// DefaultStuckPatterns match interactive confirmation dialogs.
var DefaultStuckPatterns = []string{ //nolint:gochecknoglobals // exported defaults
	`Would you like to proceed`,
	`ctrl-g to edit`,
	`❯.*\d+\.\s+Yes.*\d+\.\s+Yes`,
}

// Detector classifies captured pane text as Working, Idle or Stuck.
type Detector struct {
	prompt []*regexp.Regexp
	stuck  []*regexp.Regexp
}

// NewDetector compiles the built-in pattern sets.
func NewDetector() *Detector {
	d, err := NewDetectorFromPatterns(nil, nil)
	if err != nil {
		panic(err) // built-in patterns always compile
	}
	return d
}

// NewDetectorFromPatterns compiles caller-supplied sets. An empty set selects
// the corresponding defaults. The first pattern that does not compile is
// reported as a *protocol.InvalidPatternError.
func NewDetectorFromPatterns(prompt, stuck []string) (*Detector, error) {
	if len(prompt) == 0 {
		prompt = DefaultPromptPatterns
	}
	if len(stuck) == 0 {
		stuck = DefaultStuckPatterns
	}
	p, err := compileAll("prompt", prompt)
	if err != nil {
		return nil, err
	}
	s, err := compileAll("stuck", stuck)
	if err != nil {
		return nil, err
	}
	return &Detector{prompt: p, stuck: s}, nil
}

func compileAll(set string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &protocol.InvalidPatternError{Set: set, Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

// IsAtPrompt reports whether any of the last few non-blank lines ends in a prompt.
func (d *Detector) IsAtPrompt(text string) bool {
	for _, line := range tailLines(text, promptTailLines) {
		for _, re := range d.prompt {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// IsStuck reports whether the text shows a confirmation dialog anywhere.
func (d *Detector) IsStuck(text string) bool {
	for _, re := range d.stuck {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Detect classifies text. Empty text is Working.
func (d *Detector) Detect(text string) Liveness {
	switch {
	case d.IsStuck(text):
		return Stuck
	case d.IsAtPrompt(text):
		return Idle
	default:
		return Working
	}
}

// tailLines returns up to n trailing non-blank lines, last line last.
func tailLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append([]string{line}, out...)
	}
	return out
}
