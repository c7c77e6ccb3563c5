package testjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dkoosis/runreport/internal/ndjson"
)

// ProcessFunc receives each decoded event. Returning false stops the stream.
type ProcessFunc func(TestEvent) bool

// Stream decodes go test -json events from r and hands each to fn until EOF,
// until fn returns false, or until ctx is done. Lines that are not JSON, such
// as compiler chatter interleaved with the events, are skipped and counted in
// malformed. See ndjson.Scan for how cancellation releases r.
func Stream(ctx context.Context, r io.Reader, fn ProcessFunc) (malformed int, err error) {
	err = ndjson.Scan(ctx, r, func(_ int, line []byte) (bool, error) {
		var event TestEvent
		if json.Unmarshal(line, &event) != nil {
			malformed++
			return true, nil
		}
		return fn(event), nil
	})
	if err != nil && ctx.Err() == nil {
		err = fmt.Errorf("scanning test output: %w", err)
	}
	return malformed, err
}
