package cli

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/errors"
)

// watchDebounce coalesces the burst of events editors emit for one save.
const watchDebounce = 150 * time.Millisecond

// watchDump dumps path once, then again after every change until the
// command context is cancelled. Errors after the first dump are reported and
// watching continues.
func (c *CLI) watchDump(cmd *cobra.Command, path string, opts *dumpOpts) error {
	ctx := cmd.Context()
	if err := c.runDump(cmd, path, opts); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "start file watcher")
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place, which drops a watch on the file itself.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "watch %s", path)
	}
	printInfo("Watching %s (ctrl+c to stop)", path)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			c.Logger.Debug("snapshot changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			trigger = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-trigger:
			trigger = nil
			if err := c.runDump(cmd, path, opts); err != nil {
				printError("%s", errors.UserMessage(err))
			}
		}
	}
}
