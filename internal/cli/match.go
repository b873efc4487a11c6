package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/geom"
	"github.com/matzehuels/panelmap/pkg/match"
)

// matchCommand creates the match command for a one-off window id lookup.
func (c *CLI) matchCommand() *cobra.Command {
	var (
		frameStr string
		owners   []string
	)

	cmd := &cobra.Command{
		Use:   "match <descriptors.json|->",
		Short: "Match a window frame against an OS window list",
		Long: `Match a window frame against a JSON array of OS window descriptors
({"id", "owner", "x", "y", "w", "h"}) and print the matched window id.`,
		Example: `  panelmap match --frame 10,10,800,600 windows.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := parseFrame(frameStr)
			if err != nil {
				return err
			}
			candidates, err := readDescriptors(cmd, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("owner") {
				owners = c.Config.Match.Owners
			}

			m := match.NewMatcher(c.Config.Match.Tolerances)
			filtered := match.FilterOwners(candidates, owners...)
			c.Logger.Debug("matching", "candidates", len(candidates), "after_owner_filter", len(filtered))

			res, ok := m.Match(&frame, filtered)
			out := struct {
				ID    *int64   `json:"matched_window_id"`
				Score *float64 `json:"score"`
			}{}
			if ok {
				out.ID, out.Score = &res.ID, &res.Score
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !ok {
				printWarning("No window within tolerance")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frameStr, "frame", "", "window frame as x,y,w,h")
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "OS window owner to match against (repeatable, default from config)")
	_ = cmd.MarkFlagRequired("frame")

	return cmd
}

// parseFrame parses "x,y,w,h".
func parseFrame(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "frame %q must be x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "frame %q", s)
		}
		v[i] = f
	}
	if v[2] < 0 || v[3] < 0 {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "frame %q has a negative size", s)
	}
	return geom.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// readDescriptors reads a JSON array of OS window descriptors from a file or
// stdin.
func readDescriptors(cmd *cobra.Command, arg string) ([]match.Descriptor, error) {
	var r io.Reader = cmd.InOrStdin()
	label := "stdin"
	if arg != stdinArg {
		f, err := os.Open(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", arg)
			}
			return nil, fmt.Errorf("open %s: %w", arg, err)
		}
		defer f.Close()
		r, label = f, arg
	}
	var ds []match.Descriptor
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", label)
	}
	return ds, nil
}
