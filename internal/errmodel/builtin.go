package errmodel

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Title    string `json:"title" yaml:"title"`
	Status   int    `json:"status,omitempty" yaml:"status,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Instance string `json:"instance,omitempty" yaml:"instance,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// MessageError is the common {"code": ..., "message": ...} body.
type MessageError struct {
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (m *MessageError) Error() string {
	if m.Code != "" {
		return m.Code + ": " + m.Message
	}
	return m.Message
}

type FieldError struct {
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
}

// ErrorList is a {"errors": [...]} validation body.
type ErrorList struct {
	Errors []FieldError `json:"errors" yaml:"errors"`
}

func (l *ErrorList) Error() string {
	parts := make([]string, 0, len(l.Errors))
	for _, e := range l.Errors {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

const (
	ModelProblem = "problem"
	ModelMessage = "message"
	ModelErrors  = "errors"
)

// Registry maps names to candidates so chains can be selected from config.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Candidate
}

// NewRegistry returns a registry holding the built-in shapes.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Candidate)}
	for _, c := range []Candidate{
		JSON[Problem](ModelProblem, AllowUnknownFields(), Require("title")),
		JSON[MessageError](ModelMessage, Require("message")),
		JSON[ErrorList](ModelErrors, Require("errors.0.message")),
	} {
		r.byName[c.Name()] = c
	}
	return r
}

// Register adds or replaces a named candidate.
func (r *Registry) Register(c Candidate) error {
	if c == nil || strings.TrimSpace(c.Name()) == "" {
		return fmt.Errorf("error model must have a name")
	}
	r.mu.Lock()
	r.byName[strings.ToLower(c.Name())] = c
	r.mu.Unlock()
	return nil
}

// Names lists the registered models, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds a chain from names, preserving their order.
func (r *Registry) Lookup(names ...string) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			known := make([]string, 0, len(r.byName))
			for k := range r.byName {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown error model %q (known: %s)", name, strings.Join(known, ", "))
		}
		chain = append(chain, c)
	}
	return chain, nil
}

// Lookup resolves names against the built-in shapes.
func Lookup(names ...string) (Chain, error) {
	return NewRegistry().Lookup(names...)
}
