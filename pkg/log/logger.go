// Package log configures structured JSON logging for the pipeline via
// log/slog, with stacktrace extraction for cockroachdb/errors values and a
// zerolog bridge for estimator warnings.
package log

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"

	pkgerrors "rentsignal/pkg/errors"
)

// SetupLogger installs the default slog logger and wires the warning bridge.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{
					Key:   "severity",
					Value: attr.Value,
				}
			case slog.MessageKey:
				attr = slog.Attr{
					Key:   "message",
					Value: attr.Value,
				}
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(os.Stderr, &ops)
	errFmtHandler := WrapByErrFmtHandler(handler)
	slog.SetDefault(slog.New(errFmtHandler))

	installWarningBridge()
}

// ToLogLevel maps a config string to a slog level.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info", "":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
	ComponentAttrKey  = "component"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// GetLoggerWithName returns the default logger tagged with a component name.
func GetLoggerWithName(name string) *slog.Logger {
	return slog.Default().With(slog.String(ComponentAttrKey, name))
}

// installWarningBridge routes estimator warnings through zerolog so types
// implementing MarshalZerologObject keep their structure.
func installWarningBridge() {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	pkgerrors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.EmbedObject(obj).Msg("estimator warning")
			return
		}
		ev.Err(warning).Msg("estimator warning")
	})
}
