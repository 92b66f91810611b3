package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Clark-Hu/watchlist-tracker/internal/config"
)

const prefix = "[watchlist-api] "

// Logger writes to stdout and, when configured, to a size-rotated file.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New builds the process logger from cfg.
func New(cfg config.Config) *Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(stdout io.Writer, cfg config.Config) *Logger {
	l := &Logger{}
	out := stdout
	if cfg.LogFile != "" {
		l.file = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, l.file)
	}
	l.Logger = log.New(out, prefix, log.LstdFlags|log.Lshortfile)
	return l
}

// Close flushes and closes the rotated log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
