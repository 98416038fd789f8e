package trace

import (
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// LogTracer forwards events to a commonlog logger: span ends and points at
// info, span begins and heartbeats at debug.
type LogTracer struct {
	log   commonlog.Logger
	level Level
}

// ConfigureLogging sets the commonlog verbosity (0 = errors only) and an
// optional log file path.
func ConfigureLogging(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// NewLogTracer returns a tracer writing through commonlog.GetLogger(name).
func NewLogTracer(name string, level Level) *LogTracer {
	return &LogTracer{log: commonlog.GetLogger(name), level: level}
}

// Emit logs the event.
func (t *LogTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	line := strings.TrimSuffix(string(formatText(ev)), "\n")
	switch ev.Kind {
	case KindSpanBegin, KindHeartbeat:
		t.log.Debugf("%s", line)
	default:
		t.log.Infof("%s", line)
	}
}

func (t *LogTracer) Flush() error { return nil }

func (t *LogTracer) Close() error { return nil }

func (t *LogTracer) Level() Level { return t.level }

func (t *LogTracer) Enabled() bool { return t.level > LevelOff }
