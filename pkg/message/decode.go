package message

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dkoosis/runreport/internal/ndjson"
	schemafs "github.com/dkoosis/runreport/pkg/message/schema"
)

const schemaName = "message.schema.json"

var (
	wireSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

func compileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := schemafs.FS.ReadFile(schemaName)
		if err != nil {
			compileErr = fmt.Errorf("read message schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal message schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaName, doc); err != nil {
			compileErr = fmt.Errorf("add message schema resource: %w", err)
			return
		}
		wireSchema, compileErr = compiler.Compile(schemaName)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile message schema: %w", compileErr)
		}
	})
	return wireSchema, compileErr
}

// DecodeOption configures Decode, ParseStream and Stream.
type DecodeOption func(*decoder)

// WithStrict validates every line against the embedded wire schema before
// decoding it.
func WithStrict(strict bool) DecodeOption {
	return func(d *decoder) { d.strict = strict }
}

type decoder struct {
	strict bool
}

func newDecoder(opts []DecodeOption) *decoder {
	d := &decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *decoder) decode(line []byte) (*Message, error) {
	if d.strict {
		sch, err := compileSchema()
		if err != nil {
			return nil, err
		}
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(line))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
		}
		if err := sch.Validate(inst); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
		}
	}
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Decode parses a single wire-format line.
func Decode(line []byte, opts ...DecodeOption) (*Message, error) {
	return newDecoder(opts).decode(line)
}

// Encode renders m as a single wire-format line, without the terminator.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// ParseStream decodes every message in an NDJSON stream. Unlike a test log,
// a message stream has no tolerable garbage: the first malformed line aborts
// the parse.
func ParseStream(r io.Reader, opts ...DecodeOption) ([]*Message, error) {
	var out []*Message
	err := Stream(context.Background(), r, func(m *Message) bool {
		out = append(out, m)
		return true
	}, opts...)
	return out, err
}

// ProcessFunc receives each decoded message. Returning false stops the stream.
type ProcessFunc func(m *Message) bool

// Stream decodes messages line by line and calls fn for each one. It stops on
// EOF, when fn returns false, on the first malformed line, or when ctx is
// done. See ndjson.Scan for how cancellation releases r.
func Stream(ctx context.Context, r io.Reader, fn ProcessFunc, opts ...DecodeOption) error {
	d := newDecoder(opts)
	err := ndjson.Scan(ctx, r, func(n int, line []byte) (bool, error) {
		m, err := d.decode(line)
		if err != nil {
			return false, fmt.Errorf("line %d: %w", n, err)
		}
		return fn(m), nil
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, ErrContractViolation) {
		err = fmt.Errorf("scanning messages: %w", err)
	}
	return err
}
