package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/buildinfo"
)

// SetVersion overrides the build information shown by --version. Release
// builds set it through ldflags on pkg/buildinfo instead.
func SetVersion(v, c, d string) {
	buildinfo.Version = v
	buildinfo.Commit = c
	buildinfo.Date = d
}

// Execute runs the panelmap CLI with args and returns the first command error.
// Errors are not printed; the caller reports them.
//
// Logging goes to stderr at info level, or debug level with --verbose.
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:]); err != nil {
//	        fmt.Fprintln(os.Stderr, err)
//	        os.Exit(errors.ExitCode(err))
//	    }
//	}
func Execute(ctx context.Context, args []string) error {
	var verbose bool

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		return loadConfig(cmd, args)
	}

	root.SilenceErrors = true
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
