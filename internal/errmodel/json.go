package errmodel

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/tidwall/gjson"
)

type jsonOptions struct {
	required     []string
	allowUnknown bool
}

// Option tunes a JSON candidate.
type Option func(*jsonOptions)

// Require rejects bodies that lack any of the given gjson paths.
func Require(paths ...string) Option {
	return func(o *jsonOptions) {
		o.required = append(o.required, paths...)
	}
}

// AllowUnknownFields accepts members the target type does not declare.
func AllowUnknownFields() Option {
	return func(o *jsonOptions) {
		o.allowUnknown = true
	}
}

type jsonCandidate[T any] struct {
	name string
	opts jsonOptions
}

// JSON builds a structural candidate decoding into T. By default unknown
// fields are rejected, so a body only matches the shape it was written for.
// The decoded value is a *T.
func JSON[T any](name string, opts ...Option) Candidate {
	c := &jsonCandidate[T]{name: name}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

func (c *jsonCandidate[T]) Name() string { return c.name }

func (c *jsonCandidate[T]) Decode(raw []byte) (any, bool) {
	value, err := c.decode(raw)
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *jsonCandidate[T]) decode(raw []byte) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, errors.New("not JSON")
	}
	parsed := gjson.ParseBytes(raw)
	if parsed.Type == gjson.Null {
		return nil, errors.New("null body")
	}
	for _, path := range c.opts.required {
		if !parsed.Get(path).Exists() {
			return nil, errors.New("missing " + path)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if !c.opts.allowUnknown {
		dec.DisallowUnknownFields()
	}
	var value T
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data")
	}
	return &value, nil
}
