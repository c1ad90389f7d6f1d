// Package logger creates the emulator log destination.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

const flags = log.Ldate | log.Ltime | log.Lmicroseconds

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to stdout when path is empty, otherwise
// appending to the file at path. The closer releases the file.
func New(path string) (*log.Logger, io.Closer, error) {
	if len(path) == 0 {
		return log.New(os.Stdout, "", flags), nopCloser{}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := log.New(f, "", flags)
	l.Printf("[LOG] Logging to %s", path)
	return l, f, nil
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
