package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// StatusSuccess is the reply status of a successful remote call.
const StatusSuccess = "success"

// Result is a decoded reply from the remote plugin.
type Result struct {
	Status string
	Result json.RawMessage
	Error  json.RawMessage
}

// Success reports whether the remote call succeeded.
func (r *Result) Success() bool { return r.Status == StatusSuccess }

// Encode serialises cmd as the UTF-8 JSON object {"type": ..., "params": ...}.
func Encode(cmd Command) ([]byte, error) {
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cmd); err != nil {
		return nil, &Error{Kind: KindEncoding, Msg: fmt.Sprintf("cannot encode %s command: %v", cmd.Type, err), Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a reply. The payload must be valid UTF-8 holding a JSON
// object with a "status" member, plus "result" on success or "error"
// otherwise.
func Decode(data []byte) (*Result, error) {
	fields, err := decodeObject(data, "reply")
	if err != nil {
		return nil, err
	}

	rawStatus, ok := fields["status"]
	if !ok {
		return nil, decodingError("reply has no status", nil)
	}
	res := &Result{}
	if err := json.Unmarshal(rawStatus, &res.Status); err != nil {
		// Non-string statuses are simply not "success".
		res.Status = string(rawStatus)
	}

	if res.Success() {
		if res.Result, ok = fields["result"]; !ok {
			return nil, decodingError("successful reply has no result", nil)
		}
		return res, nil
	}
	if res.Error, ok = fields["error"]; !ok {
		return nil, decodingError(fmt.Sprintf("reply with status %s has no error", rawStatus), nil)
	}
	return res, nil
}

// DecodeCommand parses a request the way the remote plugin does.
func DecodeCommand(data []byte) (Command, error) {
	fields, err := decodeObject(data, "command")
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := json.Unmarshal(fields["type"], &cmd.Type); err != nil || cmd.Type == "" {
		return Command{}, decodingError("command has no type", err)
	}
	cmd.Params = map[string]any{}
	if raw, ok := fields["params"]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &cmd.Params); err != nil {
			return Command{}, decodingError("command params are not an object", err)
		}
	}
	return cmd, nil
}

func decodeObject(data []byte, what string) (map[string]json.RawMessage, error) {
	if !utf8.Valid(data) {
		return nil, decodingError(what+" is not valid UTF-8", nil)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, decodingError(what+" is not a JSON object", err)
	}
	if fields == nil {
		return nil, decodingError(what+" is not a JSON object", nil)
	}
	return fields, nil
}

func decodingError(msg string, cause error) *Error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Kind: KindDecoding, Msg: "Invalid reply from GIMP: " + msg, Err: cause}
}

// ErrMessageTooLarge is returned by ReadMessage when the peer sends more
// than the permitted number of bytes without completing a JSON value.
var ErrMessageTooLarge = errors.New("message exceeds size limit")

// ReadMessage reads exactly one complete JSON value from r and returns its
// bytes. At most limit bytes are consumed. I/O errors from r are returned
// unchanged so callers can classify them; malformed or oversized input is
// reported as a decoding failure.
func ReadMessage(r io.Reader, limit int64) ([]byte, error) {
	dec := json.NewDecoder(&limitReader{r: r, n: limit})
	var raw json.RawMessage
	err := dec.Decode(&raw)
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, ErrMessageTooLarge):
		return nil, decodingError(fmt.Sprintf("reply exceeds %d bytes", limit), err)
	case errors.Is(err, io.EOF):
		return nil, io.ErrUnexpectedEOF
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return nil, decodingError("reply is not valid JSON", err)
	}
	return nil, err
}

type limitReader struct {
	r io.Reader
	n int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, ErrMessageTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}
