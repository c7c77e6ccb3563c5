package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/runreport/internal/detect"
	"github.com/dkoosis/runreport/pkg/bus"
	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/testjson"
)

const sniffSize = 4096

// ErrUnknownFormat is returned for input that is neither message NDJSON nor
// go test -json.
var ErrUnknownFormat = errors.New("unrecognized input format")

type input struct {
	name string
	open func() (io.ReadCloser, error)
}

type replayOptions struct {
	strict bool
	log    *slog.Logger
}

func inputsFrom(args []string, stdin io.Reader) []input {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]input, 0, len(args))
	for _, name := range args {
		if name == "-" {
			inputs = append(inputs, input{name: "<stdin>", open: func() (io.ReadCloser, error) {
				return io.NopCloser(stdin), nil
			}})
			continue
		}
		inputs = append(inputs, input{name: name, open: func() (io.ReadCloser, error) {
			return os.Open(name)
		}})
	}
	return inputs
}

// replayAll replays every input into b, one goroutine per input. Reading
// stops for all inputs once b signals stop; messages already read are still
// delivered. The first read error cancels the remaining inputs.
func replayAll(ctx context.Context, b *bus.Bus, inputs []input, opts replayOptions) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		prefix := ""
		if len(inputs) > 1 {
			prefix = strconv.Itoa(i+1) + ":"
		}
		g.Go(func() error {
			rc, err := in.open()
			if err != nil {
				return fmt.Errorf("opening %s: %w", in.name, err)
			}
			defer rc.Close()
			if err := replay(ctx, b, rc, prefix, opts); err != nil {
				return fmt.Errorf("%s: %w", in.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// replay sniffs r and queues its contents into b.
func replay(ctx context.Context, b *bus.Bus, r io.Reader, prefix string, opts replayOptions) error {
	br := bufio.NewReaderSize(r, sniffSize)
	peeked, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("reading input: %w", err)
	}
	if len(peeked) == 0 {
		opts.log.Debug("empty input")
		return nil
	}

	format := detect.Sniff(peeked)
	opts.log.Debug("input detected", slog.String("format", format.String()))

	switch format {
	case detect.Messages:
		return message.Stream(ctx, br, b.Queue, message.WithStrict(opts.strict))
	case detect.GoTestJSON:
		tr := testjson.NewTranslator(b.Queue, testjson.WithIDPrefix(prefix))
		malformed, err := testjson.Stream(ctx, br, tr.Process)
		// Close whatever the stream left open even when it ended early, so
		// every started suite is finished in the report.
		tr.Finish()
		if malformed > 0 {
			opts.log.Warn("skipped malformed lines", slog.Int("count", malformed))
		}
		return err
	default:
		return ErrUnknownFormat
	}
}
