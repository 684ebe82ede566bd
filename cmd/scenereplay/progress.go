package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/reallyoldfogie/scene-replay-go/replay/player"
)

const barSteps = 1000

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newProgressSink draws a progress bar on terminals and logs quarter steps
// everywhere else.
func newProgressSink(out *os.File, logger *slog.Logger) player.ProgressSink {
	if isTerminal(out) {
		return &barProgress{out: out}
	}
	return &logProgress{log: logger.With("component", "loader"), next: 0.25}
}

type barProgress struct {
	out   io.Writer
	label string
	bar   *progressbar.ProgressBar
}

func (b *barProgress) LoadTypeChanged(label string) {
	b.label = label
	if b.bar != nil {
		b.bar.Describe(label)
	}
}

func (b *barProgress) LoadProgress(fraction float64) {
	if b.bar == nil {
		b.bar = progressbar.NewOptions(barSteps,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription(b.label),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = b.bar.Set(int(fraction * barSteps))
}

func (b *barProgress) HideLoadingBar() {
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
	}
}

type logProgress struct {
	log   *slog.Logger
	label string
	next  float64
}

func (l *logProgress) LoadTypeChanged(label string) {
	l.label = label
	l.next = 0.25
}

func (l *logProgress) LoadProgress(fraction float64) {
	if fraction < l.next {
		return
	}
	l.log.Info("load progress", "stage", l.label, "percent", int(fraction*100))
	for l.next <= fraction {
		l.next += 0.25
	}
}

func (l *logProgress) HideLoadingBar() {}
