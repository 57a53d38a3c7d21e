// Package tmpl renders shell command templates for lab hooks.
package tmpl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// shellQuote wraps s in single quotes, escaping embedded single quotes as '\''.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// hostOf returns the host[:port] of a URL, or the input when it does not parse.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

var funcs = template.FuncMap{
	"shq":  shellQuote,
	"host": hostOf,
}

// Render executes a Go template string with the given data.
// Missing keys are errors.
//
// Template functions:
//   - shq: shell-quote a string
//   - host: host[:port] of a URL
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
