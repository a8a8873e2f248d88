package strategy

import (
	"fmt"
	"net/url"
)

// Request is one immutable chunk invocation.
type Request struct {
	Filename string
	Strategy string
	Params   Params
}

// NewRequest validates the active variant of set and freezes it.
func NewRequest(filename string, set Set) (Request, error) {
	if set.Name == "" {
		return Request{}, fmt.Errorf("%w: no strategy selected", ErrInvalidParams)
	}
	params := set.Active()
	if err := params.Validate(); err != nil {
		return Request{}, err
	}
	return Request{Filename: filename, Strategy: set.Name, Params: params}, nil
}

// Query is the full query string sent to the chunk endpoint.
func (r Request) Query() url.Values {
	q := r.Params.Query()
	q.Set("filename", r.Filename)
	q.Set("strategy", r.Strategy)
	return q
}
