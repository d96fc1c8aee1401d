package protocol

import (
	"fmt"
	"strings"
)

// NotFoundError reports a lookup of a worker, window or session that does not exist.
type NotFoundError struct {
	Kind string // "worker", "window", "session"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// AlreadyExistsError reports a name collision, e.g. a second active worker
// with the same name.
type AlreadyExistsError struct {
	Kind string
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// MissingToolError reports a required external program absent from PATH.
type MissingToolError struct {
	Tool string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("required tool %q not found in PATH", e.Tool)
}

// CommandError reports a failed external command. Stderr is kept verbatim so
// callers can surface the tool's own diagnosis.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int // -1 when the process did not exit normally
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// CorruptStateError reports a persisted document that exists but cannot be parsed.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state document %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// InvalidPatternError reports a detector pattern that does not compile.
type InvalidPatternError struct {
	Set     string // "prompt" or "stuck"
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Set, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }
