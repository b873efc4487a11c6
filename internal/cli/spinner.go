package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	spinnerTick = 80 * time.Millisecond

	// spinnerElapsedAfter is when the elapsed time starts being shown.
	spinnerElapsedAfter = time.Second
)

// spinner animates a status line on statusOut while a blocking call runs.
// It only draws when statusOut is a file, so tests and pipes stay clean.
type spinner struct {
	w       io.Writer
	msg     string
	start   time.Time
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	width   int
}

// startSpinner shows msg with an animated frame until stop is called or ctx
// is done.
func startSpinner(ctx context.Context, msg string) *spinner {
	sctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		w:       statusOut,
		msg:     msg,
		start:   time.Now(),
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	if _, ok := s.w.(*os.File); !ok {
		close(s.stopped)
		return s
	}
	go s.run()
	return s
}

func (s *spinner) run() {
	defer close(s.stopped)
	t := time.NewTicker(spinnerTick)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-t.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *spinner) draw(frame string) {
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.msg)
	if d := time.Since(s.start); d >= spinnerElapsedAfter {
		line += " " + StyleDim.Render(fmt.Sprintf("(%ds)", int(d.Seconds())))
	}
	s.width = max(s.width, len(s.msg)+12)
	fmt.Fprint(s.w, "\r"+line)
}

func (s *spinner) clear() {
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
}

// stop removes the status line. It is safe to call more than once.
func (s *spinner) stop() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// succeed stops the spinner and prints a success line.
func (s *spinner) succeed(msg string) {
	s.stop()
	printSuccess("%s", msg)
}

// fail stops the spinner and prints an error line.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}

// interrupted reports whether the context the spinner was started with has
// ended.
func (s *spinner) interrupted() bool {
	return s.parent.Err() != nil
}
