package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/control"
	"github.com/matzehuels/panelmap/pkg/errors"
)

// ctlOpts holds the connection flags shared by the ctl subcommands.
type ctlOpts struct {
	url  string
	wait bool
}

// ctlCommand creates the ctl command for talking to the capture controller.
func (c *CLI) ctlCommand() *cobra.Command {
	var opts ctlOpts

	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Talk to the capture controller",
		Long: `Send commands to the capture controller over its WebSocket control
channel. The controller lists the terminal's panels by title and captures the
one selected as target.`,
	}

	cmd.PersistentFlags().StringVar(&opts.url, "url", "", "controller URL (default from config)")
	cmd.PersistentFlags().BoolVar(&opts.wait, "wait", false, "wait for the controller to come up")

	cmd.AddCommand(c.ctlPingCommand(&opts))
	cmd.AddCommand(c.ctlPanelsCommand(&opts))
	cmd.AddCommand(c.ctlSelectCommand(&opts))
	cmd.AddCommand(c.ctlStateCommand(&opts))
	cmd.AddCommand(c.ctlSendCommand(&opts))

	return cmd
}

// ctlPingCommand creates the "ctl ping" subcommand.
func (c *CLI) ctlPingCommand(opts *ctlOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the controller answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.dialController(cmd, opts.url, opts.wait)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			printSuccess("Controller is up")
			printDetail("%s", client.URL())
			return nil
		},
	}
}

// ctlPanelsCommand creates the "ctl panels" subcommand.
func (c *CLI) ctlPanelsCommand(opts *ctlOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "panels",
		Short: "List the panels the controller sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.dialController(cmd, opts.url, opts.wait)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
			defer cancel()
			panels, err := client.Panels(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), panels)
		},
	}
}

// ctlSelectCommand creates the "ctl select" subcommand.
func (c *CLI) ctlSelectCommand(opts *ctlOpts) *cobra.Command {
	var (
		title   string
		connect string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Make a panel the capture target",
		Long: `Make the panel with the given "window.tab.rank" title the capture
target. When no panel has that title the first listed panel is used.

With --connect the controller is first pointed at the capture host and its
targets are refreshed; --refresh alone only refreshes them.`,
		Example: `  panelmap ctl select --title 1.1.2
  panelmap ctl select --wait --connect 127.0.0.1:17999`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("title") {
				title = c.Config.Control.SelectTitle
			}
			if err := errors.ValidateTitle(title); err != nil {
				return err
			}
			var (
				host string
				port int
			)
			if connect != "" {
				h, p, err := parseHostPort(connect)
				if err != nil {
					return err
				}
				host, port, refresh = h, p, true
			}

			client, err := c.dialController(cmd, opts.url, opts.wait)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
			defer cancel()

			sp := startSpinner(ctx, "Selecting "+title+"...")
			if host != "" {
				if err := client.Connect(ctx, host, port); err != nil {
					sp.fail("Connect failed")
					return err
				}
			}
			if refresh {
				if err := client.RefreshTargets(ctx); err != nil {
					sp.fail("Refresh failed")
					return err
				}
			}
			panel, err := client.Select(ctx, title)
			if err != nil {
				sp.fail("Selection failed")
				return err
			}
			sp.succeed("Capturing " + panel.Title)
			if panel.Title != title {
				printWarning("No panel titled %s; fell back to %s", title, panel.Title)
			}
			printDetail("pane %s, window %d", panel.ID, panel.CGWindowID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "panel title to select (default from config)")
	cmd.Flags().StringVar(&connect, "connect", "", "capture host as host:port to connect the controller to first")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh the controller's targets before listing panels")
	return cmd
}

// parseHostPort splits a host:port flag value.
func parseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid host:port %q", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 || host == "" {
		return "", 0, errors.New(errors.ErrCodeInvalidInput, "invalid host:port %q", s)
	}
	return host, port, nil
}

// ctlStateCommand creates the "ctl state" subcommand.
func (c *CLI) ctlStateCommand(opts *ctlOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the controller's state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.dialController(cmd, opts.url, opts.wait)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
			defer cancel()
			state, err := client.State(ctx)
			if err != nil {
				return err
			}
			if len(state) == 0 {
				state = json.RawMessage("null")
			}
			return writeJSON(cmd.OutOrStdout(), state)
		},
	}
}

// ctlSendCommand creates the "ctl send" subcommand for raw commands.
func (c *CLI) ctlSendCommand(opts *ctlOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "send <cmd> [params-json]",
		Short: "Send a raw command and print the response data",
		Example: `  panelmap ctl send get_state
  panelmap ctl send connect '{"host":"127.0.0.1","port":19001}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return errors.New(errors.ErrCodeInvalidInput, "params must be valid JSON")
				}
				params = raw
			}

			client, err := c.dialController(cmd, opts.url, opts.wait)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := timeoutContext(cmd.Context(), c.Config.ControlTimeout())
			defer cancel()
			data, err := client.Send(ctx, args[0], params)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				printSuccess("%s ok", args[0])
				return nil
			}
			var v any
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
}

// dialController connects to the controller at url, or the configured URL
// when url is empty. With wait it polls until the controller answers or the
// command is cancelled.
func (c *CLI) dialController(cmd *cobra.Command, url string, wait bool) (*control.Client, error) {
	if url == "" {
		url = c.Config.Control.URL
	}
	ctx := cmd.Context()
	opts := control.Options{Timeout: c.Config.ControlTimeout(), Logger: c.Logger}

	if !wait {
		return control.Dial(ctx, url, opts)
	}

	sp := startSpinner(ctx, "Waiting for controller at "+url+"...")
	client, err := control.WaitReady(ctx, url, c.Config.ControlPollInterval(), opts)
	switch {
	case err != nil && sp.interrupted():
		sp.stop()
		return nil, err
	case err != nil:
		sp.fail("Controller did not come up")
		return nil, err
	}
	sp.stop()
	return client, nil
}
