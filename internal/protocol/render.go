package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Render re-serialises a JSON document in the layout agents already see from
// the GIMP side: ", " and ": " separators, member order preserved, and every
// non-ASCII character escaped as \uXXXX. Numbers are copied verbatim.
func Render(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	type frame struct {
		object bool
		key    bool
		n      int
	}
	var (
		sb    strings.Builder
		stack []frame
	)
	prefix := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		switch {
		case top.object && !top.key:
			sb.WriteString(": ")
		case top.n > 0:
			sb.WriteString(", ")
		}
	}
	done := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object && top.key {
			top.key = false
			return
		}
		top.key = top.object
		top.n++
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("render json: %w", err)
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				prefix()
				sb.WriteRune(rune(v))
				stack = append(stack, frame{object: v == '{', key: v == '{'})
			default:
				stack = stack[:len(stack)-1]
				sb.WriteRune(rune(v))
				done()
			}
		case string:
			prefix()
			writeASCIIString(&sb, v)
			done()
		case json.Number:
			prefix()
			sb.WriteString(v.String())
			done()
		case bool:
			prefix()
			if v {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
			done()
		case nil:
			prefix()
			sb.WriteString("null")
			done()
		}
		if len(stack) == 0 {
			break
		}
	}
	if dec.More() {
		return "", errors.New("render json: trailing data after value")
	}
	return sb.String(), nil
}

// MustRender renders v, which must be JSON-serialisable.
func MustRender(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	s, err := Render(buf.Bytes())
	if err != nil {
		return ""
	}
	return s
}

func writeASCIIString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				sb.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(sb, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(sb, `\u%04x`, r)
			}
		}
	}
	sb.WriteByte('"')
}
