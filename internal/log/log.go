package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// initLogger sets up the shared logger: stderr, text lines with full
// timestamps, INFO and above.
func initLogger() {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000000Z07:00",
		})
		logger.SetLevel(logrus.InfoLevel)
	})
}

// Logger exposes the underlying logrus logger, mostly for hooks in tests.
func Logger() *logrus.Logger {
	initLogger()
	return logger
}

func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

func SetLevel(l Level) {
	Logger().SetLevel(toLogrus(l))
}

// ParseLevel accepts the level names used in config files and env vars,
// case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("log: unknown level %q", s)
	}
}

func Debug(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Debug(msg)
}

func Info(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Info(msg)
}

func Warn(msg string, kv ...any) {
	Logger().WithFields(fields(kv)).Warn(msg)
}

func Error(msg string, err error, kv ...any) {
	Logger().WithFields(fields(kv)).WithError(err).Error(msg)
}

func toLogrus(l Level) logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// fields turns key, value, key, value ... into logrus fields. Non-string
// keys are skipped; a trailing key without a value is ignored.
func fields(kv []any) logrus.Fields {
	out := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}
