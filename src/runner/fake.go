package runner

import (
	"context"
	"strings"
	"sync"
)

// Call records one FakeRunner invocation.
type Call struct {
	Commands []string
	Options  Options
}

// Joined returns the commands of the call separated by " && ".
func (c Call) Joined() string {
	return strings.Join(c.Commands, " && ")
}

// FakeRunner is intended for tests and dry-runs. Responses are matched
// against the joined command text: the first rule whose substring occurs
// wins, otherwise Default is returned.
type FakeRunner struct {
	mu sync.Mutex

	Calls   []Call
	Rules   []FakeRule
	Default Result
}

// FakeRule maps a command substring to a canned result.
type FakeRule struct {
	Contains string
	Result   Result
	Err      error
	// OnRun runs before the result is returned, e.g. to drop files in the
	// working directory.
	OnRun func(opts Options)
}

// On appends a rule and returns the runner for chaining.
func (f *FakeRunner) On(contains string, res Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rules = append(f.Rules, FakeRule{Contains: contains, Result: res})
	return f
}

func (f *FakeRunner) Run(ctx context.Context, commands []string, opts Options) (Result, error) {
	f.mu.Lock()
	call := Call{Commands: append([]string(nil), commands...), Options: opts}
	f.Calls = append(f.Calls, call)
	rules := append([]FakeRule(nil), f.Rules...)
	def := f.Default
	f.mu.Unlock()

	joined := call.Joined()
	for _, rule := range rules {
		if strings.Contains(joined, rule.Contains) {
			if rule.OnRun != nil {
				rule.OnRun(opts)
			}
			return rule.Result, rule.Err
		}
	}
	return def, nil
}

// Ran reports whether any recorded call contains substr.
func (f *FakeRunner) Ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.Contains(c.Joined(), substr) {
			return true
		}
	}
	return false
}

// CallsContaining returns the recorded calls whose commands contain substr.
func (f *FakeRunner) CallsContaining(substr string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if strings.Contains(c.Joined(), substr) {
			out = append(out, c)
		}
	}
	return out
}
