package pkglog

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileWriter returns a size-rotated log file writer, meant to be combined
// with stdout through io.MultiWriter and passed as Options.Output.
func NewFileWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
}
