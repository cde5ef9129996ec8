// Package jsonutil recovers JSON values from free-form LLM replies.
//
// Model output routinely wraps JSON in prose or code fences, adds comments or
// trailing commas, or stops mid-value when it hits a token limit. Extract runs
// a fixed sequence of increasingly aggressive recovery stages and returns the
// first value that fits the wanted shape.
package jsonutil

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/taskplanner/internal/errors"
)

// Shape is the kind of top-level value a caller expects.
type Shape int

const (
	// ShapeAny accepts any JSON value.
	ShapeAny Shape = iota
	// ShapeArray wants an array; objects are unwrapped or wrapped.
	ShapeArray
	// ShapeObject wants an object; a one-element array of an object is unwrapped.
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeObject:
		return "object"
	default:
		return "any"
	}
}

// wrapperKeys are object keys models commonly nest the wanted array under.
var wrapperKeys = []string{"tasks", "plan", "titles", "items", "steps"}

// maxInputBytes bounds the reply size Extract will search.
const maxInputBytes = 1 << 20

// maxScanMisses bounds how many bracketed candidates locate tries and rejects
// before giving up, keeping the scan linear in the input size.
const maxScanMisses = 64

var errEmptyInput = stderrors.New("empty input")

// Extract returns the first JSON value in raw that fits want.
// Numbers decode as json.Number. On failure the error matches errors.ErrRepairFailed.
//
// A value that only fits want after wrapping or unwrapping is held back until
// truncation repair has been tried, so a cut-off reply is never mistaken for
// one of its inner values.
func Extract(raw string, want Shape) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.NewRepairFailedError(errEmptyInput)
	}
	if len(text) > maxInputBytes {
		return nil, errors.NewRepairFailedError(fmt.Errorf("input of %d bytes exceeds the %d byte limit", len(text), maxInputBytes))
	}

	unfenced := stripFences(text)

	var (
		lastErr      error
		fallback     any
		haveFallback bool
	)
	try := func(candidates []string) (any, bool) {
		for _, c := range candidates {
			m := locate(c, want)
			if m.haveExact {
				return m.exact, true
			}
			if m.haveFallback && !haveFallback {
				fallback, haveFallback = m.fallback, true
			}
			if m.err != nil {
				lastErr = m.err
			}
		}
		return nil, false
	}

	// direct parse, then bracket scan, on the raw and the unfenced text
	if v, ok := try(distinct(text, unfenced)); ok {
		return v, nil
	}

	// the same after removing comments and trailing commas
	cleaned := distinct(clean(unfenced), clean(text))
	if v, ok := try(cleaned); ok {
		return v, nil
	}

	// output cut off by a token limit
	for _, c := range cleaned {
		for _, repaired := range repairTruncated(c) {
			v, err := decode(repaired)
			if err != nil {
				lastErr = err
				continue
			}
			if out, _, ok := coerce(v, want); ok {
				return out, nil
			}
		}
	}

	if haveFallback {
		return fallback, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON %s found", want)
	}
	return nil, errors.NewRepairFailedError(lastErr)
}

// ExtractInto runs Extract and decodes the result into v.
func ExtractInto(raw string, want Shape, v any) error {
	val, err := Extract(raw, want)
	if err != nil {
		return err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return errors.NewRepairFailedError(err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.NewRepairFailedError(err)
	}
	return nil
}

// match is what locate found in one candidate text.
type match struct {
	exact        any
	haveExact    bool
	fallback     any
	haveFallback bool
	err          error
}

// locate parses s whole, then falls back to scanning for balanced bracketed
// substrings. The first value with the wanted shape is returned as exact; the
// first one that only fits after coercion is kept as the fallback.
func locate(s string, want Shape) match {
	var m match

	v, err := decode(s)
	if err == nil {
		out, exact, ok := coerce(v, want)
		switch {
		case ok && exact:
			m.exact, m.haveExact = out, true
			return m
		case ok:
			m.fallback, m.haveFallback = out, true
		default:
			err = fmt.Errorf("value is not a JSON %s", want)
		}
	}
	m.err = err

	misses := 0
	for i := 0; i < len(s) && misses < maxScanMisses; i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, open := matchClose(s, i)
		if open {
			// every later opener sits inside this unclosed value
			break
		}
		if end < 0 {
			misses++
			continue
		}
		v, err := decode(s[i : end+1])
		if err != nil {
			m.err = err
			misses++
			continue
		}
		out, exact, ok := coerce(v, want)
		if ok && exact {
			m.exact, m.haveExact = out, true
			return m
		}
		if ok && !m.haveFallback {
			m.fallback, m.haveFallback = out, true
		}
		// nested brackets belong to this value
		i = end
	}
	return m
}

// decode parses exactly one JSON value from s.
func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// coerce fits v to want. exact is false when the value had to be wrapped or unwrapped.
func coerce(v any, want Shape) (out any, exact, ok bool) {
	switch want {
	case ShapeArray:
		switch t := v.(type) {
		case []any:
			return t, true, true
		case map[string]any:
			for _, key := range wrapperKeys {
				if arr, found := t[key].([]any); found && len(t) == 1 {
					return arr, true, true
				}
			}
			for _, key := range wrapperKeys {
				if arr, found := t[key].([]any); found {
					return arr, false, true
				}
			}
			return []any{t}, false, true
		}
		return nil, false, false
	case ShapeObject:
		switch t := v.(type) {
		case map[string]any:
			return t, true, true
		case []any:
			if len(t) == 1 {
				if obj, isObj := t[0].(map[string]any); isObj {
					return obj, false, true
				}
			}
		}
		return nil, false, false
	default:
		return v, true, true
	}
}

// matchClose returns the index of the bracket closing the one at start, or -1.
// Brackets inside strings are ignored and mismatched pairs abort the match.
// open reports that the input ran out with the bracket still open.
func matchClose(s string, start int) (end int, open bool) {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, false
			}
		}
	}
	return -1, len(stack) > 0
}

// stripFences returns the body of the first ``` fenced block, dropping the
// info string. An unclosed fence runs to the end of the text.
func stripFences(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	body := s[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// info string such as "json"; a fence opened inline keeps its content
		if info := strings.TrimSpace(body[:nl]); info == "" || !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// clean removes // and /* */ comments and trailing commas outside of strings.
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 3
			}
		case c == ',':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// repairTruncated proposes completions for a value that never closes: first
// closing every open bracket as is, then cutting back to the last complete
// top-level element.
func repairTruncated(s string) []string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil
	}

	var stack []byte
	inString, escaped := false, false
	cut := -1

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return nil
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				// the value is complete; truncation is not the problem
				return nil
			}
			if len(stack) == 1 {
				cut = i + 1
			}
		case ',':
			if len(stack) == 1 {
				cut = i
			}
		}
	}

	if len(stack) == 0 {
		return nil
	}

	var out []string
	if !inString {
		closers := make([]byte, len(stack))
		for i := range stack {
			closers[i] = stack[len(stack)-1-i]
		}
		out = append(out, clean(s[start:]+string(closers)))
	}
	if cut >= 0 {
		out = append(out, s[start:cut]+string(stack[0]))
	}
	return out
}

func distinct(candidates ...string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
