package main

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"scribe/internal/progress"
	"scribe/internal/transcript"
)

// errReported marks failures already rendered to the user as an error event.
var errReported = errors.New("run failed")

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
)

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// eventRenderer prints a job stream either as NDJSON or as one human line
// per event.
type eventRenderer struct {
	out      io.Writer
	ndjson   *progress.Writer
	colorize bool
	showText bool
}

func newEventRenderer(out io.Writer, forceJSON, showText bool) *eventRenderer {
	r := &eventRenderer{out: out, showText: showText}
	if forceJSON || !isTerminal(out) {
		r.ndjson = progress.NewWriter(out)
		return r
	}
	r.colorize = true
	return r
}

// consume drains the stream and returns the transcript of the terminal
// complete event, or errReported when the run ended with an error event.
func (r *eventRenderer) consume(events iter.Seq[progress.Event]) (transcript.Result, error) {
	var (
		result transcript.Result
		failed bool
	)
	for event := range events {
		if err := r.render(event); err != nil {
			return transcript.Result{}, fmt.Errorf("write event: %w", err)
		}
		switch event.Kind {
		case progress.KindComplete:
			if event.Result != nil {
				result = *event.Result
			}
		case progress.KindError:
			failed = true
		}
	}
	if failed {
		return transcript.Result{}, errReported
	}
	return result, nil
}

func (r *eventRenderer) render(event progress.Event) error {
	if r.ndjson != nil {
		return r.ndjson.Write(event)
	}
	_, err := fmt.Fprintln(r.out, r.humanLine(event))
	return err
}

func (r *eventRenderer) humanLine(event progress.Event) string {
	switch event.Kind {
	case progress.KindProgress:
		if pct, ok := event.PercentValue(); ok {
			return fmt.Sprintf("[%3d%%] %s", pct, event.Message)
		}
		return r.paint(ansiDim, "[ .. ] ") + event.Message
	case progress.KindComplete:
		if event.Result == nil {
			return r.paint(ansiGreen, "done")
		}
		res := event.Result
		line := fmt.Sprintf("%s %s (%d segments) %s", r.paint(ansiGreen, "done"), res.Method, len(res.Segments), res.PersistedPath)
		if r.showText && strings.TrimSpace(res.Text) != "" {
			line += "\n\n" + res.Text
		}
		return line
	case progress.KindError:
		return r.paint(ansiRed, "error: ") + event.Message
	default:
		return event.Message
	}
}

func (r *eventRenderer) paint(color, value string) string {
	if !r.colorize {
		return value
	}
	return color + value + ansiReset
}
