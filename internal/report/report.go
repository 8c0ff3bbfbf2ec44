// Package report renders human-readable verification diagnostics.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"initguard/internal/initdata"
)

// MaxValueLen is the display limit for a single field value.
const MaxValueLen = 100

var rule = strings.Repeat("=", 80)

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Write prints the decoded fields, the check string, both signatures and
// the verdict.
func Write(w io.Writer, res *initdata.Result) error {
	ew := NewErrWriter(w)

	ew.Printf("%s\nINIT DATA VERIFICATION\n%s\n\n", rule, rule)

	ew.Printf("Fields (received order, hash excluded):\n")
	for _, f := range res.Payload.Fields() {
		if f.Name == initdata.HashField {
			continue
		}
		ew.Printf("  %s = %s\n", f.Name, Truncate(f.Value, MaxValueLen))
	}

	ew.Printf("\nCheck string:\n%s\n\n", res.CheckString)
	ew.Printf("Computed signature: %s\n", res.Computed)
	ew.Printf("Received signature: %s\n\n", res.Received)

	verdict := "VALID"
	if !res.Valid {
		verdict = "INVALID: signature mismatch"
	}
	ew.Printf("%s\n%s\n%s\n", rule, verdict, rule)

	return ew.Err()
}

// WriteError prints the verdict for a payload that could not be processed.
func WriteError(w io.Writer, err error) error {
	kind := "ERROR"
	switch {
	case errors.Is(err, initdata.ErrMalformedPayload):
		kind = "MALFORMED PAYLOAD"
	case errors.Is(err, initdata.ErrEncoding):
		kind = "ENCODING ERROR"
	}

	_, werr := fmt.Fprintf(w, "%s\n%s\n  %v\n%s\n", rule, kind, err, rule)
	return werr
}

// ErrWriter formats to w until the first write error, which Err returns.
type ErrWriter struct {
	w   io.Writer
	err error
}

func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (ew *ErrWriter) Printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *ErrWriter) Err() error {
	return ew.Err()
}
