// Package adapter describes the agent programs jig can launch in a worker
// window and builds their startup command lines.
package adapter

import (
	"fmt"
	"sort"
	"strings"
)

// Adapter describes one agent CLI.
type Adapter struct {
	Name         string
	Command      string
	AutoFlag     string // appended when auto mode is requested
	SkillsDir    string
	SkillFile    string
	SettingsFile string
	ProjectFile  string
}

// Claude is the Claude Code CLI.
var Claude = Adapter{ //nolint:gochecknoglobals // immutable descriptor
	Name:         "claude",
	Command:      "claude",
	AutoFlag:     "--dangerously-skip-permissions",
	SkillsDir:    ".claude/skills",
	SkillFile:    "SKILL.md",
	SettingsFile: ".claude/settings.json",
	ProjectFile:  "CLAUDE.md",
}

var registry = map[string]Adapter{ //nolint:gochecknoglobals // read-only lookup table
	Claude.Name: Claude,
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	a, ok := registry[name]
	if !ok {
		return Adapter{}, fmt.Errorf("unknown agent type %q (supported: %s)", name, strings.Join(Supported(), ", "))
	}
	return a, nil
}

// Supported lists registered adapter names.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SpawnCommand builds the shell line typed into a worker window: the agent
// command, the task context as one single-quoted argument when non-empty,
// and the auto flag when auto is set.
func (a Adapter) SpawnCommand(context string, auto bool) string {
	var b strings.Builder
	b.WriteString(a.Command)
	if context != "" {
		b.WriteString(" ")
		b.WriteString(QuoteShell(context))
	}
	if auto && a.AutoFlag != "" {
		b.WriteString(" ")
		b.WriteString(a.AutoFlag)
	}
	return b.String()
}

// QuoteShell wraps s in single quotes, splicing each embedded quote as '\''.
func QuoteShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
