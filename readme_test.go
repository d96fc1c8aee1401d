package main

import (
	"os"
	"strings"
	"testing"
)

func TestREADMEDocumentsCommands(t *testing.T) {
	content, err := os.ReadFile("README.md")
	if err != nil {
		t.Fatalf("Failed to read README.md: %v", err)
	}
	readmeText := string(content)

	for _, section := range []string{"## Commands", "## Configuration", "## State"} {
		if !strings.Contains(readmeText, section) {
			t.Errorf("README.md missing %s section", section)
		}
	}

	commands := []string{
		"spawn", "register", "ps", "status", "attach", "review", "approve", "merge",
		"fail", "archive", "kill", "unregister", "health", "nudge", "events", "dash", "version",
	}
	for _, name := range commands {
		if !strings.Contains(readmeText, "`jig "+name) {
			t.Errorf("README.md does not document jig %s", name)
		}
	}

	for _, table := range []string{"[worktree]", "[spawn]", "[agent]", "[review]", "[health]"} {
		if !strings.Contains(readmeText, table) {
			t.Errorf("README.md missing jig.toml table %s", table)
		}
	}
}
