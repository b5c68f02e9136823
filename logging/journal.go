package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

const syslogIdentifier = "trafficlight"

// journalAvailable is replaced in tests.
var journalAvailable = journal.Enabled

// JournalHandler is a slog.Handler that sends records to the systemd journal.
type JournalHandler struct {
	level  slog.Level
	fields map[string]string
	groups []string
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

func NewJournalHandler(level slog.Level) *JournalHandler {
	return &JournalHandler{
		level: level,
		send:  journal.Send,
	}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]string{
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		addField(fields, h.groups, attr)
		return true
	})
	return h.send(r.Message, priority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = make(map[string]string, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		clone.fields[k] = v
	}
	for _, attr := range attrs {
		addField(clone.fields, h.groups, attr)
	}
	return &clone
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func priority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	}
	return journal.PriDebug
}

// addField stores attr under an upper case journal field name. Journal
// field names only allow A-Z, 0-9 and underscore.
func addField(fields map[string]string, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		sub := append(append([]string{}, groups...), attr.Key)
		for _, a := range attr.Value.Group() {
			addField(fields, sub, a)
		}
		return
	}
	key := strings.Join(append(append([]string{}, groups...), attr.Key), "_")
	fields[fieldName(key)] = fmt.Sprint(attr.Value.Any())
}

func fieldName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_")
	if name == "" {
		return "FIELD"
	}
	return name
}
