package reporter

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/runreport/pkg/message"
)

// optionsByAssembly holds the execution options of each running assembly,
// keyed case-insensitively by assembly path.
type optionsByAssembly struct {
	mu   sync.RWMutex
	byID map[string]message.ExecutionOptions
}

func newOptionsByAssembly() *optionsByAssembly {
	return &optionsByAssembly{byID: make(map[string]message.ExecutionOptions)}
}

// optionsKey folds case. A Caser is not safe for concurrent use, so each
// call builds its own.
func optionsKey(path string) string {
	return cases.Fold().String(path)
}

func (o *optionsByAssembly) add(path string, opts message.ExecutionOptions) {
	o.mu.Lock()
	o.byID[optionsKey(path)] = opts
	o.mu.Unlock()
}

func (o *optionsByAssembly) remove(path string) {
	o.mu.Lock()
	delete(o.byID, optionsKey(path))
	o.mu.Unlock()
}

// get returns the options for path, or the zero options when none are known.
func (o *optionsByAssembly) get(path string) message.ExecutionOptions {
	if path == "" {
		return message.ExecutionOptions{}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.byID[optionsKey(path)]
}

// describeExecution renders the diagnostic suffix of the Starting line.
func describeExecution(opts message.ExecutionOptions, seed *int) string {
	parallel := "off"
	if !opts.DisableParallelization {
		threads := opts.MaxParallelThreads
		if threads == 0 {
			threads = runtime.NumCPU()
		}
		count := "unlimited"
		if threads > 0 {
			count = fmt.Sprint(threads)
		}
		parallel = fmt.Sprintf("on [%s thread%s]", count, plural(threads))
	}

	stop := "off"
	if opts.StopOnFail {
		stop = "on"
	}

	explicit := opts.Explicit
	if explicit == "" {
		explicit = message.ExplicitOff
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "parallel test collections = %s, stop on fail = %s, explicit = %s",
		parallel, stop, cases.Lower(language.Und).String(string(explicit)))
	if seed != nil {
		fmt.Fprintf(&sb, ", seed = %d", *seed)
	}
	if opts.Culture != nil {
		fmt.Fprintf(&sb, ", culture = %s", cultureName(*opts.Culture))
	}
	return sb.String()
}

// cultureName canonicalizes a BCP 47 tag. The empty culture is the invariant
// culture; unparseable names are shown as given.
func cultureName(culture string) string {
	if culture == "" {
		return "invariant"
	}
	tag, err := language.Parse(culture)
	if err != nil {
		return culture
	}
	return tag.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
