package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/pipeline"
)

// browseOpts holds the command-line flags for the browse command.
type browseOpts struct {
	dumpFlags
	capture bool
	url     string
}

// browseCommand creates the browse command for picking a panel interactively.
func (c *CLI) browseCommand() *cobra.Command {
	var opts browseOpts

	cmd := &cobra.Command{
		Use:   "browse <snapshot.json|->",
		Short: "Browse the panel list interactively",
		Long: `Browse the panel list of a snapshot in a terminal table.

The selected panel is printed as JSON. With --capture, its title is also sent
to the capture controller, which makes the matching pane the capture target.`,
		Example: `  panelmap browse snapshot.json
  panelmap browse snapshot.json --capture`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == stdinArg {
				return errors.New(errors.ErrCodeInvalidInput, "browse reads the keyboard from stdin; pass a snapshot file")
			}
			return c.runBrowse(cmd, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "make the selected panel the controller's capture target")
	cmd.Flags().StringVar(&opts.url, "url", "", "controller URL (default from config)")

	return cmd
}

func (c *CLI) runBrowse(cmd *cobra.Command, arg string, opts *browseOpts) error {
	res, err := c.computeDump(cmd, arg, &opts.dumpFlags)
	if err != nil {
		return err
	}
	printTabErrors(res.Errors)

	selected, err := pickPanel(cmd, res.Panels)
	if err != nil {
		return err
	}
	if selected == nil {
		printInfo("Nothing selected")
		return nil
	}
	if err := writeJSON(cmd.OutOrStdout(), selected); err != nil {
		return err
	}

	if !opts.capture {
		printNextStep("Capture it", fmt.Sprintf("panelmap ctl select --title %s", selected.Title))
		return nil
	}
	return c.capturePanel(cmd, opts.url, selected)
}

// pickPanel runs the panel list until the user selects a panel or quits.
func pickPanel(cmd *cobra.Command, panels []pipeline.Record) (*pipeline.Record, error) {
	p := tea.NewProgram(NewPanelListModel(panels),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("panel browser: %w", err)
	}
	return final.(PanelListModel).Selected, nil
}

// capturePanel asks the controller to capture the selected panel.
func (c *CLI) capturePanel(cmd *cobra.Command, url string, p *pipeline.Record) error {
	client, err := c.dialController(cmd, url, false)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
	defer cancel()

	panel, err := client.Select(ctx, p.Title)
	if err != nil {
		return err
	}
	if panel.Title != p.Title {
		printWarning("Controller has no panel titled %s; captured %s instead", p.Title, panel.Title)
	}
	printSuccess("Capturing %s", panel.Title)
	printDetail("pane %s, window %d", panel.ID, panel.CGWindowID)
	return nil
}
