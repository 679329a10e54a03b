package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

// barSink renders batch progress as an in-place bar on stderr.
type barSink struct {
	bar     progress.Model
	out     io.Writer
	label   string
	enabled bool
	last    int
}

func newBarSink(label string, quiet bool) *barSink {
	return &barSink{
		bar:     progress.New(progress.WithDefaultGradient()),
		out:     os.Stderr,
		label:   label,
		enabled: !quiet && isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// Progress implements domain.ProgressSink. Updates are monotonic; stale
// counts are dropped.
func (s *barSink) Progress(done, total int) {
	if !s.enabled || total == 0 {
		return
	}
	if done < s.last {
		return
	}
	s.last = done
	fmt.Fprintf(s.out, "\r\033[2K%s %s %d/%d", s.label, s.bar.ViewAs(float64(done)/float64(total)), done, total)
	if done == total {
		fmt.Fprintln(s.out)
		s.last = 0
	}
}
