package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/history"
)

// historyCommand creates the history command for browsing recorded dumps.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded dumps",
		Long: `Browse dumps recorded with --history (or history.enabled in the config).

Entries are kept in a local SQLite database; see history.path and
history.keep in the config.`,
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyPruneCommand())

	return cmd
}

// historyListCommand creates the "history list" subcommand.
func (c *CLI) historyListCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent dumps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := c.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				printInfo("No dumps recorded")
				printNextStep("Record one", "panelmap dump --history snapshot.json")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), historyTable(entries))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum number of entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

// historyShowCommand creates the "history show" subcommand.
func (c *CLI) historyShowCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded dump",
		Long:  `Show a recorded dump. Any unique prefix of the id is accepted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatTable {
				return fmt.Errorf("invalid format %q (must be 'json' or 'table')", format)
			}
			ctx := cmd.Context()
			store, err := c.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			e, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), e)
			}

			printKeyValue("ID", e.ID)
			printKeyValue("Recorded", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printKeyValue("Source", e.Source)
			printKeyValue("Snapshot", shortHash(e.SnapshotHash))
			printNewline()
			return writeResult(cmd.OutOrStdout(), e.Result, formatTable)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, table")
	return cmd
}

// historyPruneCommand creates the "history prune" subcommand.
func (c *CLI) historyPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest dumps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = c.Config.History.Keep
			}
			ctx := cmd.Context()
			store, err := c.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(ctx, keep)
			if err != nil {
				return err
			}
			printSuccess("Deleted %d history entries", n)
			printDetail("Database: %s", store.Path())
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of newest dumps to keep (default from config)")
	return cmd
}

// historyTable renders history summaries as a bordered table.
func historyTable(entries []history.Entry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			shortID(e.ID),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Source,
			strconv.Itoa(e.Panes),
			fmt.Sprintf("%d/%d", e.Matched, e.Windows),
			strconv.Itoa(e.TabErrors),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Recorded", "Source", "Panes", "Matched", "Tab Errors").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch {
			case col == 0:
				return cell.Foreground(colorCyan)
			case col == 5 && row >= 0 && row < len(entries) && entries[row].TabErrors > 0:
				return cell.Foreground(colorYellow)
			}
			return cell
		})
	return t.Render()
}

// shortID is the id prefix shown in listings; history show accepts it.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
