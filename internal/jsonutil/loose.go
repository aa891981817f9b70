// Package jsonutil recovers JSON values from language model output that is
// wrapped in code fences, double-encoded, or surrounded by prose.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// maxUnwrapDepth bounds how many string-in-string encodings are peeled.
const maxUnwrapDepth = 3

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// StripCodeFences trims s and removes one surrounding markdown code fence,
// optionally tagged "json".
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseLoose returns the JSON value found in text, or false when none can be
// recovered. Numbers decode as json.Number. It never panics.
//
// Strict parsing is tried first; a string result is treated as a second layer
// of encoding and parsed again. When strict parsing fails, the first "{" to
// the last "}" is parsed on its own.
func ParseLoose(text string) (any, bool) {
	return parseLoose(text, 0)
}

func parseLoose(text string, depth int) (any, bool) {
	s := StripCodeFences(text)
	if s == "" {
		return nil, false
	}

	v, err := decodeStrict(s)
	if err == nil {
		inner, isString := v.(string)
		if !isString {
			return v, true
		}
		if depth < maxUnwrapDepth {
			if iv, ok := parseLoose(inner, depth+1); ok {
				return iv, true
			}
		}
		return nil, false
	}

	span := braceSpan.FindString(s)
	if span == "" {
		return nil, false
	}
	v, err = decodeStrict(span)
	if err != nil {
		return nil, false
	}
	return v, true
}

// #region helpers
var errTrailingData = errors.New("jsonutil: trailing data after value")

// decodeStrict decodes exactly one JSON value and rejects anything after it.
func decodeStrict(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

// #endregion helpers
