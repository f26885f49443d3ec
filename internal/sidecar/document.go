// Package sidecar reads, edits and writes BIDS JSON sidecar documents.
//
// Documents are decoded with numbers kept as their original literals and are
// always encoded with alphabetically sorted keys and two-space indentation,
// so rewriting an unchanged document produces a stable file.
package sidecar

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ErrNotObject is returned when a sidecar's top-level value is not a JSON object.
var ErrNotObject = errors.New("sidecar is not a JSON object")

// Document is a decoded sidecar.
type Document map[string]any

// Decode parses a sidecar document.
func Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse sidecar: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse sidecar: trailing data after top-level value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Document(obj), nil
}

// Encode renders the document with sorted keys and two-space indentation.
// No trailing newline is written.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("encode sidecar: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Has reports whether the field is present.
func (d Document) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// SetStrings replaces the field with the given list.
func (d Document) SetStrings(field string, values []string) {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	d[field] = list
}

// Remove deletes the field and reports whether it was present.
func (d Document) Remove(field string) bool {
	if !d.Has(field) {
		return false
	}
	delete(d, field)
	return true
}

// Strings returns the field as a list of strings. A single string value is
// returned as a one-element list. ok is false when the field is absent or
// holds anything else.
func (d Document) Strings(field string) (values []string, ok bool) {
	switch v := d[field].(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, isString := item.(string)
			if !isString {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Digest returns the sha256 hex digest of the RFC 8785 canonical form of the
// document. Semantically equal documents share a digest regardless of layout.
func (d Document) Digest() (string, error) {
	data, err := d.Encode()
	if err != nil {
		return "", err
	}
	return DigestJSON(data)
}

// DigestJSON canonicalizes raw JSON (RFC 8785) and returns its sha256 hex digest.
func DigestJSON(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize sidecar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
