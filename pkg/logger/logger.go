package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options - параметры логгера сервиса и утилит
type Options struct {
	Level  string
	Format string // json или text
	Output io.Writer
}

func New(opts Options) *logrus.Logger {
	log := logrus.New()

	switch opts.Format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	// Уровень логирования
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel // Уровень по умолчанию, если передан некорректный
	}
	log.SetLevel(level)
	return log
}
