// Package detect sniffs the head of an input stream to determine its format.
package detect

import (
	"bytes"
	"encoding/json"

	"github.com/dkoosis/runreport/pkg/message"
)

// Format represents a recognized input format.
type Format int

const (
	Unknown    Format = iota
	Messages          // lifecycle message NDJSON
	GoTestJSON        // go test -json NDJSON stream
)

func (f Format) String() string {
	switch f {
	case Messages:
		return "messages"
	case GoTestJSON:
		return "go-test-json"
	default:
		return "unknown"
	}
}

// Sniff examines the first line of input to determine format. Blank leading
// lines are skipped. The line may be cut short by the caller's read window.
func Sniff(data []byte) Format {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 || data[0] != '{' {
		return Unknown
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}

	kind, action := probe(data)
	if message.Kind(kind).Known() {
		return Messages
	}
	if goTestActions[action] {
		return GoTestJSON
	}
	return Unknown
}

// probe reads the top-level keys of a JSON object until it finds the field
// that identifies either format. It tolerates a line cut short by the sniff
// window as long as the identifying field comes before the cut.
func probe(line []byte) (kind, action string) {
	dec := json.NewDecoder(bytes.NewReader(line))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", ""
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", ""
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", ""
		}
		switch key {
		case "kind":
			_ = json.Unmarshal(raw, &kind)
			return kind, ""
		case "Action":
			_ = json.Unmarshal(raw, &action)
			return "", action
		}
	}
	return "", ""
}

var goTestActions = map[string]bool{
	"start": true, "run": true, "pause": true, "cont": true,
	"pass": true, "bench": true, "fail": true, "output": true, "skip": true,
	"build-output": true, "build-fail": true,
}
