package types

import "github.com/govm-net/vmstore/core"

// Receipt is the outcome of a committed top level call.
type Receipt struct {
	TraceID  string       `json:"trace_id"`
	Contract core.Address `json:"contract"`
	Method   string       `json:"method"`
	Return   any          `json:"return"`
	Events   []core.Event `json:"events,omitempty"`
}
