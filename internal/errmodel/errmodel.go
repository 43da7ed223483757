// Package errmodel decodes failure response bodies against an ordered chain of
// candidate error shapes. The first candidate that decodes wins; a candidate
// that does not fit is skipped, never reported.
package errmodel

// Candidate is one named decode attempt.
type Candidate interface {
	Name() string
	// Decode returns the decoded value and true, or false when raw does not
	// have this candidate's shape.
	Decode(raw []byte) (any, bool)
}

// Match is the result of a successful chain decode.
type Match struct {
	Model string
	Value any
}

// Chain is an ordered list of candidates.
type Chain []Candidate

func NewChain(candidates ...Candidate) Chain {
	chain := make(Chain, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			chain = append(chain, c)
		}
	}
	return chain
}

// Decode tries each candidate in order and returns the first match. An empty
// body is offered to every candidate too.
func (c Chain) Decode(raw []byte) (Match, bool) {
	for _, candidate := range c {
		if value, ok := candidate.Decode(raw); ok {
			return Match{Model: candidate.Name(), Value: value}, true
		}
	}
	return Match{}, false
}

// Names lists the candidate names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, candidate := range c {
		names[i] = candidate.Name()
	}
	return names
}

// DecodeFunc adapts a plain function to a Candidate.
type DecodeFunc func(raw []byte) (any, bool)

type funcCandidate struct {
	name string
	fn   DecodeFunc
}

// Func builds a Candidate from fn.
func Func(name string, fn DecodeFunc) Candidate {
	return funcCandidate{name: name, fn: fn}
}

func (f funcCandidate) Name() string { return f.name }

func (f funcCandidate) Decode(raw []byte) (any, bool) {
	if f.fn == nil {
		return nil, false
	}
	return f.fn(raw)
}
