package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// CommandCallAPI is the only command type the remote plugin understands.
const CommandCallAPI = "call_api"

// Command is a single request sent to the remote plugin.
type Command struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// NewCommand returns a Command with a non-nil Params map.
func NewCommand(typ string, params map[string]any) Command {
	if params == nil {
		params = map[string]any{}
	}
	return Command{Type: typ, Params: params}
}

// APICall names a remote API method by its dotted path, for example
// "Gimp.Image.get_by_id", together with its arguments.
type APICall struct {
	Path   string
	Args   []any
	Kwargs map[string]any
}

// Command wraps the call as a call_api Command. Nil Args and Kwargs are sent
// as an empty list and an empty object.
func (c APICall) Command() Command {
	args := c.Args
	if args == nil {
		args = []any{}
	}
	kwargs := c.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return NewCommand(CommandCallAPI, map[string]any{
		"api_path": c.Path,
		"args":     args,
		"kwargs":   kwargs,
	})
}

// Float is a float64 that always encodes with a fractional part, so 10 is
// sent as 10.0. Procedure arguments on the remote side are typed by the JSON
// number form, and an integral radius must still arrive as a float.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return json.Marshal(json.Number(s))
}

// UnmarshalArgs decodes caller-supplied JSON into v, keeping every number as a
// json.Number. Arguments forwarded to the remote side then re-encode with
// their original text: 10.0 stays a float and large integers keep every
// digit. Trailing data after the value is an error.
func UnmarshalArgs(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
