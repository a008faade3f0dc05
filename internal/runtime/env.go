package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"computeduck/internal/runtime/builtins"
)

// Env aggregates host services used by builtins.
// Env implements builtins.Env to avoid import cycles.
type Env struct {
	ioService builtins.IO
	start     time.Time
}

// IO returns the IO service. Implements builtins.Env interface.
func (e *Env) IO() builtins.IO {
	return e.ioService
}

// Elapsed returns seconds since the env was created. Implements builtins.Env interface.
func (e *Env) Elapsed() float64 {
	return time.Since(e.start).Seconds()
}

// stdIO is the default IO implementation for CLI/console.
type stdIO struct {
	out    io.Writer
	reader *bufio.Reader
}

func newStdIO() *stdIO {
	return &stdIO{
		out:    os.Stdout,
		reader: bufio.NewReader(os.Stdin),
	}
}

func (s *stdIO) Print(str string) {
	fmt.Fprint(s.out, str)
}

func (s *stdIO) Println(str string) {
	fmt.Fprintln(s.out, str)
}

func (s *stdIO) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		// Handle EOF - io.EOF is returned when stdin is closed
		if errors.Is(err, io.EOF) {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriterIO prints to w and reads lines from r. A nil r reads as empty input.
type WriterIO struct {
	w      io.Writer
	reader *bufio.Reader
}

func NewWriterIO(w io.Writer, r io.Reader) *WriterIO {
	wio := &WriterIO{w: w}
	if r != nil {
		wio.reader = bufio.NewReader(r)
	}
	return wio
}

func (w *WriterIO) Print(s string) {
	fmt.Fprint(w.w, s)
}

func (w *WriterIO) Println(s string) {
	fmt.Fprintln(w.w, s)
}

func (w *WriterIO) ReadLine() (string, error) {
	if w.reader == nil {
		return "", nil
	}
	line, err := w.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// DefaultEnv returns an Env printing to stdout and reading stdin.
func DefaultEnv() *Env {
	return NewEnv(newStdIO())
}

// NewEnv creates a new Env with the given IO service.
// This is useful for tests that need to provide a custom IO implementation.
func NewEnv(io builtins.IO) *Env {
	return &Env{
		ioService: io,
		start:     time.Now(),
	}
}
