package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It starts as a stderr logger so that
// packages can log before Init runs (tests, CLI subcommands).
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.InfoLevel,
	Prefix:          "milestones",
})

type Config struct {
	Debug  bool
	LogDir string
}

// Init points the logger at stderr plus a rotating file under LogDir.
func Init(cfg Config) error {
	writers := []io.Writer{os.Stderr}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "milestones.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "milestones",
	})
	return nil
}

func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }

// Fatal logs and exits with status 1.
func Fatal(msg string, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
	os.Exit(1)
}

// Writer adapts the logger for libraries that take an io.Writer, such as
// fiber's request logger. Each write becomes one info entry.
func Writer() io.Writer {
	return Logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer()
}
