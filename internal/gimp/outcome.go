package gimp

import (
	"encoding/json"

	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// ErrorPrefix marks a failed call in the text handed back to the agent.
const ErrorPrefix = "Error: "

// Outcome is the result of a GIMP operation: either a JSON value, a plain
// message, or an error.
type Outcome struct {
	Value   json.RawMessage
	Message string
	Err     error
}

// FromJSON wraps a successful JSON result.
func FromJSON(raw json.RawMessage) Outcome { return Outcome{Value: raw} }

// FromMessage wraps a successful plain-text result.
func FromMessage(msg string) Outcome { return Outcome{Message: msg} }

// Failed wraps an error.
func Failed(err error) Outcome { return Outcome{Err: err} }

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Text renders the outcome for the agent: the JSON value, the message, or
// ErrorPrefix followed by the error.
func (o Outcome) Text() string {
	switch {
	case o.Err != nil:
		return ErrorPrefix + o.Err.Error()
	case o.Message != "":
		return o.Message
	case o.Value == nil:
		return "null"
	}
	s, err := protocol.Render(o.Value)
	if err != nil {
		return string(o.Value)
	}
	return s
}

// remoteError turns the error payload of a reply into an error whose text is
// the rendered payload.
func remoteError(payload json.RawMessage) error {
	msg, err := protocol.Render(payload)
	if err != nil {
		msg = string(payload)
	}
	return &protocol.Error{Kind: protocol.KindRemote, Msg: msg}
}
