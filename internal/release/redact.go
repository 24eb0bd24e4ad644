package release

import (
	"io"
	"strings"
)

// redactedPlaceholder replaces secret values in all pipeline output.
const redactedPlaceholder = "***"

// Redactor masks secret values in text. It exists so that a step which
// echoes a token (deliberately or via a failing tool's error message) does
// not leak it into logs or CI output.
type Redactor struct {
	replacer *strings.Replacer
}

// NewRedactor builds a Redactor that masks each of the given values.
// Empty values are ignored — replacing "" would corrupt all output.
func NewRedactor(values []string) *Redactor {
	pairs := make([]string, 0, len(values)*2)
	for _, v := range values {
		if v == "" {
			continue
		}
		pairs = append(pairs, v, redactedPlaceholder)
	}
	return &Redactor{replacer: strings.NewReplacer(pairs...)}
}

// Redact returns s with every secret value masked.
func (r *Redactor) Redact(s string) string {
	return r.replacer.Replace(s)
}

// Writer wraps w so that everything written through it is redacted first.
//
// Redaction is applied per Write call: a secret split across two writes is
// not masked. Step output arrives line-buffered in practice, which keeps
// that window negligible.
func (r *Redactor) Writer(w io.Writer) io.Writer {
	return &redactingWriter{w: w, r: r}
}

type redactingWriter struct {
	w io.Writer
	r *Redactor
}

// Write masks secrets in p before forwarding. It reports the original
// length on success, as io.Writer requires, even though the masked text
// may differ in size.
func (rw *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(rw.w, rw.r.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
