// Package ndjson reads newline-delimited JSON streams one line at a time,
// off the caller's goroutine so a stalled reader never outlives its context.
package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// MaxLineSize bounds a single line. One go test -json Output field can hold
// a whole panic dump.
const MaxLineSize = 4 << 20

// ErrLineTooLong reports a line over MaxLineSize.
var ErrLineTooLong = errors.New("line exceeds maximum size")

// LineFunc handles one non-blank line, trimmed of surrounding whitespace.
// n is the 1-based line number in the stream. The slice is owned by the
// callee. Returning false or a non-nil error ends the scan.
type LineFunc func(n int, line []byte) (more bool, err error)

type numbered struct {
	n    int
	data []byte
}

// Scan calls fn for every non-blank line of r until EOF, until fn stops it,
// or until ctx is done. On cancellation Scan closes r if it is an io.Closer,
// which unblocks the reading goroutine; other readers must be closed by the
// caller.
func Scan(ctx context.Context, r io.Reader, fn LineFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan numbered)
	var readErr error
	go func() {
		defer close(lines)
		readErr = read(ctx, r, lines)
	}()

	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return readErr
			}
			more, err := fn(l.n, l.data)
			if err != nil || !more {
				return err
			}
		}
	}
}

func read(ctx context.Context, r io.Reader, out chan<- numbered) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	n := 0
	for sc.Scan() {
		n++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		select {
		case out <- numbered{n: n, data: bytes.Clone(data)}:
		case <-ctx.Done():
			return nil
		}
	}
	switch err := sc.Err(); {
	case errors.Is(err, bufio.ErrTooLong):
		return fmt.Errorf("line %d: %w", n+1, ErrLineTooLong)
	case err != nil:
		return fmt.Errorf("reading line %d: %w", n+1, err)
	}
	return nil
}
