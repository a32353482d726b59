package session

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunoga/confedit"
	"github.com/brunoga/confedit/diff"
	"github.com/brunoga/confedit/model"
)

// DefaultDebounce is the delay between the last validation request and the
// validation call.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a Session.
type Option func(*config)

type config struct {
	debounce          time.Duration
	strategy          confedit.CloneStrategy
	validateOnConceal bool
	issuesSink        func([]model.ValidationIssue)
	snapshotSink      func(*model.Snapshot)
	diffOptions       []diff.Option
}

func defaultConfig() config {
	return config{
		debounce:          DefaultDebounce,
		strategy:          confedit.StrategyReflect,
		validateOnConceal: true,
	}
}

// WithDebounce sets the validation debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithCloneStrategy selects how snapshots are cloned.
func WithCloneStrategy(s confedit.CloneStrategy) Option {
	return func(c *config) {
		c.strategy = s
	}
}

// WithValidateOnConceal controls whether concealing an edit, undo and redo
// request a validation.
func WithValidateOnConceal(v bool) Option {
	return func(c *config) {
		c.validateOnConceal = v
	}
}

// WithIssuesSink sets a function receiving every accepted validation
// result.
func WithIssuesSink(sink func([]model.ValidationIssue)) Option {
	return func(c *config) {
		c.issuesSink = sink
	}
}

// WithSnapshotSink sets a function receiving every published working
// snapshot.
func WithSnapshotSink(sink func(*model.Snapshot)) Option {
	return func(c *config) {
		c.snapshotSink = sink
	}
}

// WithDiffOptions sets the options used by LocalChanges and Compare. The
// session's type resolver always takes precedence over one given here.
func WithDiffOptions(opts ...diff.Option) Option {
	return func(c *config) {
		c.diffOptions = opts
	}
}

// Config is the file form of the session options.
type Config struct {
	Debounce          time.Duration `yaml:"debounce,omitempty"`
	CloneStrategy     string        `yaml:"cloneStrategy,omitempty"`
	ValidateOnConceal *bool         `yaml:"validateOnConceal,omitempty"`
}

// LoadConfig reads a YAML session configuration such as
//
//	debounce: 250ms
//	cloneStrategy: go-clone
//	validateOnConceal: false
func LoadConfig(r io.Reader) (Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode session config: %w", err)
	}
	if c.Debounce < 0 {
		return Config{}, fmt.Errorf("decode session config: negative debounce %v", c.Debounce)
	}
	return c, nil
}

// Options converts c into session options. Unset fields keep their
// defaults.
func (c Config) Options() ([]Option, error) {
	var opts []Option
	if c.Debounce > 0 {
		opts = append(opts, WithDebounce(c.Debounce))
	}
	if c.CloneStrategy != "" {
		s, err := confedit.ParseCloneStrategy(c.CloneStrategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCloneStrategy(s))
	}
	if c.ValidateOnConceal != nil {
		opts = append(opts, WithValidateOnConceal(*c.ValidateOnConceal))
	}
	return opts, nil
}
