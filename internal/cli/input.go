package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/snapshot"
)

// readSnapshot reads the snapshot named by arg, or stdin for "-".
func readSnapshot(cmd *cobra.Command, arg string) (*snapshot.Snapshot, error) {
	if arg == stdinArg {
		return snapshot.Read(cmd.InOrStdin())
	}
	return snapshot.ReadFile(arg)
}

// sourceLabel names where a snapshot came from in logs and history.
func sourceLabel(arg string) string {
	if arg == stdinArg {
		return "stdin"
	}
	return arg
}

// openOutput returns stdout for an empty path and a created file otherwise.
// The returned close function is always safe to call.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == stdinArg {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// writeOutput writes data to path, or stdout for an empty path.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	w, closeFn, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
