package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	digitPattern = regexp.MustCompile(`^[0-9]+$`)
)

// ValidateWorkerName checks that name is usable as a branch name, a working
// copy directory under .jig and a window name. Slash-separated segments are
// allowed (feature/auth); each segment must start with a letter or digit and
// contain only letters, digits, '-' and '_'. An all-digit name is rejected
// because tmux reads it as a window index.
func ValidateWorkerName(name string) error {
	if name == "" {
		return fmt.Errorf("worker name must not be empty")
	}
	if digitPattern.MatchString(name) {
		return fmt.Errorf("invalid worker name %q: must not be all digits", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if !namePattern.MatchString(seg) {
			return fmt.Errorf("invalid worker name %q: segment %q must match %s", name, seg, namePattern)
		}
	}
	return nil
}
