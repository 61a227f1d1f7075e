// Package display holds the two text regions a trigger reports into: the
// result region and the error region.
package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// ErrorMarker is shown in the result region after a failed request.
const ErrorMarker = "Error"

// Display is safe for concurrent use. Concurrent reports race and the last
// one wins.
type Display struct {
	mu     sync.Mutex
	result string
	err    string
}

// New returns an empty display.
func New() *Display {
	return &Display{}
}

// ReportSuccess shows body in the result region and clears the error region.
func (d *Display) ReportSuccess(body []byte) {
	text := Format(body)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = text
	d.err = ""
}

// ReportError marks the result region and shows body in the error region.
func (d *Display) ReportError(body []byte) {
	text := Format(body)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = ErrorMarker
	d.err = text
}

// Result returns the content of the result region.
func (d *Display) Result() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Error returns the content of the error region.
func (d *Display) Error() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Render writes the result region to out and a non-empty error region to errOut.
func (d *Display) Render(out, errOut io.Writer) error {
	d.mu.Lock()
	result, errText := d.result, d.err
	d.mu.Unlock()

	if _, err := fmt.Fprintln(out, result); err != nil {
		return err
	}
	if errText != "" {
		if _, err := fmt.Fprintln(errOut, errText); err != nil {
			return err
		}
	}
	return nil
}

// Format renders body as JSON indented by two spaces, with numbers and
// strings written in normal form (1.0 as 1, \u00e9 as é) and object keys
// kept in their original order. A body that is not JSON is rendered as a
// JSON string; an empty body renders as null.
func Format(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "null"
	}

	var buf bytes.Buffer
	if json.Valid(trimmed) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := writeValue(&buf, dec, 0); err == nil {
			return buf.String()
		}
		buf.Reset()
	}

	writeString(&buf, string(body))
	return buf.String()
}

func writeValue(buf *bytes.Buffer, dec *json.Decoder, depth int) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		return writeContainer(buf, dec, v, depth)
	case string:
		writeString(buf, v)
	case json.Number:
		writeNumber(buf, v)
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func writeContainer(buf *bytes.Buffer, dec *json.Decoder, open json.Delim, depth int) error {
	closing := "]"
	if open == '{' {
		closing = "}"
	}

	if !dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		buf.WriteString(string(open) + closing)
		return nil
	}

	buf.WriteString(string(open))
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat("  ", depth+1))

		if open == '{' {
			key, err := dec.Token()
			if err != nil {
				return err
			}
			name, ok := key.(string)
			if !ok {
				return fmt.Errorf("unexpected object key %v", key)
			}
			writeString(buf, name)
			buf.WriteString(": ")
		}

		if err := writeValue(buf, dec, depth+1); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteString(closing)
	return nil
}

// writeNumber writes n the way a JavaScript engine prints a double. Values
// outside float64 range keep their source text.
func writeNumber(buf *bytes.Buffer, n json.Number) {
	f, err := n.Float64()
	if err != nil {
		buf.WriteString(n.String())
		return
	}
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	data, _ := json.Marshal(f)
	buf.Write(data)
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
}
