package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"jig/pkg/spawn"
	"jig/pkg/worker"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// psRow is the JSON shape of one listing row.
type psRow struct {
	Name         string        `json:"name"`
	ID           string        `json:"id,omitempty"`
	Registered   bool          `json:"registered"`
	Live         string        `json:"live"`
	Status       worker.Status `json:"status"`
	Branch       string        `json:"branch"`
	WorktreePath string        `json:"worktree_path"`
	CommitsAhead int           `json:"commits_ahead"`
	Dirty        bool          `json:"dirty"`
	Pruned       bool          `json:"pruned,omitempty"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

// newPsCmd creates the "jig ps" subcommand.
func newPsCmd(a *app) *cobra.Command {
	var (
		opts   spawn.ListOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "ps",
		Aliases: []string{"ls", "list"},
		Short:   "List workers with their live tmux status",
		Long: `Lists workers reconciled against tmux. Workers whose window or session is
gone are shown once more as pruned and then dropped from the state document.
Merged, failed and archived workers are hidden unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			infos, err := e.coord.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), psRows(infos))
			}
			if len(infos) == 0 {
				printf(cmd.OutOrStdout(), "no workers\n")
				return nil
			}
			printf(cmd.OutOrStdout(), "%s\n", renderTable(infos, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include merged, failed and archived workers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func psRows(infos []spawn.TaskInfo) []psRow {
	rows := make([]psRow, 0, len(infos))
	for _, info := range infos {
		r := psRow{
			Name: info.Name, ID: string(info.ID), Registered: info.Registered, Live: string(info.Live),
			Status: info.Status, Branch: info.Branch, WorktreePath: info.WorktreePath,
			CommitsAhead: info.CommitsAhead, Dirty: info.Dirty, Pruned: info.Pruned,
		}
		if !info.UpdatedAt.IsZero() {
			t := info.UpdatedAt
			r.UpdatedAt = &t
		}
		rows = append(rows, r)
	}
	return rows
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)                     //nolint:gochecknoglobals // style
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)                                //nolint:gochecknoglobals // style
	prunedStyle = cellStyle.Foreground(lipgloss.Color("240")).Strikethrough(true) //nolint:gochecknoglobals // style
)

// renderTable formats the listing; now anchors the relative update times.
func renderTable(infos []spawn.TaskInfo, now time.Time) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			statusCell(info),
			string(info.Live),
			info.Branch,
			changesCell(info),
			updatedCell(info.UpdatedAt, now),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers("NAME", "STATUS", "TMUX", "BRANCH", "CHANGES", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(infos) && infos[row].Pruned:
				return prunedStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func statusCell(info spawn.TaskInfo) string {
	if !info.Registered {
		return "unregistered"
	}
	return info.Status.String()
}

func changesCell(info spawn.TaskInfo) string {
	var parts []string
	if info.CommitsAhead > 0 {
		parts = append(parts, fmt.Sprintf("%d ahead", info.CommitsAhead))
	}
	if info.Dirty {
		parts = append(parts, "dirty")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func updatedCell(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
