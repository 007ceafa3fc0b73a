package loader

import (
	"log/slog"
	"time"
	"unicode/utf8"
)

// Kind names the entity a pipeline loads.
type Kind string

const (
	KindAuthor Kind = "author"
	KindBook   Kind = "book"
)

// Stats counts the lines one pipeline run handled. Saved+Failed == Read.
type Stats struct {
	Read   int
	Saved  int
	Failed int
}

// Observer receives pipeline events. The loader itself never logs; everything it
// has to say goes through here. Calls come from the loader's goroutine only.
type Observer interface {
	// OnSaved is called after an entity was persisted.
	OnSaved(kind Kind, id, name string)
	// OnLineError is called for a line that was skipped. lineNo counts from 1 over the whole file.
	OnLineError(kind Kind, lineNo int, line string, err error)
	// OnDone is called once when a pipeline run that opened its dump ends, whatever the outcome.
	OnDone(kind Kind, stats Stats, elapsed time.Duration)
}

// maxLoggedLine bounds how much of a failing raw line LogObserver prints.
const maxLoggedLine = 256

// LogObserver reports pipeline events as structured log records.
type LogObserver struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o *LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *LogObserver) OnSaved(kind Kind, id, name string) {
	o.logger().Info("Saved "+string(kind), "id", id, "name", name)
}

func (o *LogObserver) OnLineError(kind Kind, lineNo int, line string, err error) {
	o.logger().Warn("Skipping "+string(kind)+" line", "line_no", lineNo, "err", err, "line", truncate(line, maxLoggedLine))
}

func (o *LogObserver) OnDone(kind Kind, stats Stats, elapsed time.Duration) {
	o.logger().Info("Finished "+string(kind)+" load",
		"read", stats.Read, "saved", stats.Saved, "failed", stats.Failed, "took", elapsed.Round(time.Millisecond))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "…"
}

type nopObserver struct{}

func (nopObserver) OnSaved(Kind, string, string)         {}
func (nopObserver) OnLineError(Kind, int, string, error) {}
func (nopObserver) OnDone(Kind, Stats, time.Duration)    {}
