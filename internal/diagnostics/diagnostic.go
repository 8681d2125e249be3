package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Severity classifies how serious a Diagnostic is.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// RelatedSpan attaches a secondary span with an explanatory label to a
// Diagnostic, e.g. pointing at a prior definition in a duplicate-definition
// error.
type RelatedSpan struct {
	Span  Span   `json:"span"`
	Label string `json:"label"`
}

// Diagnostic is the canonical structured message produced by every
// compiler phase. It never carries phase-internal Go types so it can be
// serialized and compared across process boundaries (language-server use).
type Diagnostic struct {
	Schema   string         `json:"schema"`
	Code     string         `json:"code"`
	Phase    string         `json:"phase"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Span     Span           `json:"span"`
	Related  []RelatedSpan  `json:"related,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

const schemaV1 = "cairo-m.diagnostic/v1"

// New builds an error-severity Diagnostic for the given code.
func New(code, phase string, span Span, message string, args ...any) *Diagnostic {
	return &Diagnostic{
		Schema:   schemaV1,
		Code:     code,
		Phase:    phase,
		Severity: SeverityError,
		Message:  fmt.Sprintf(message, args...),
		Span:     span,
	}
}

// Newf is an alias for New kept for call sites that read better with an
// explicit "f" suffix when always passing format arguments.
func Newf(code, phase string, span Span, format string, args ...any) *Diagnostic {
	return New(code, phase, span, format, args...)
}

// Warning builds a warning-severity Diagnostic for the given code.
func Warning(code, phase string, span Span, message string, args ...any) *Diagnostic {
	d := New(code, phase, span, message, args...)
	d.Severity = SeverityWarning
	return d
}

// WithRelated appends a related span and returns the receiver for chaining.
func (d *Diagnostic) WithRelated(span Span, label string) *Diagnostic {
	d.Related = append(d.Related, RelatedSpan{Span: span, Label: label})
	return d
}

// WithData attaches structured, machine-readable detail to the diagnostic.
func (d *Diagnostic) WithData(key string, value any) *Diagnostic {
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	d.Data[key] = value
	return d
}

// IsError reports whether the diagnostic blocks downstream phases.
func (d *Diagnostic) IsError() bool { return d.Severity == SeverityError }

// ToJSON renders the diagnostic deterministically.
func (d *Diagnostic) ToJSON(indent bool) (string, error) {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(d, "", "  ")
	} else {
		data, err = json.Marshal(d)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WrappedError lets a Diagnostic travel through Go's error chain while
// preserving its structure for callers that want it back via AsDiagnostic.
type WrappedError struct {
	Diag *Diagnostic
}

func (e *WrappedError) Error() string {
	if e.Diag == nil {
		return "unknown diagnostic"
	}
	return fmt.Sprintf("%s:%s: %s", e.Diag.Span, e.Diag.Code, e.Diag.Message)
}

// Wrap turns a Diagnostic into an error.
func Wrap(d *Diagnostic) error {
	if d == nil {
		return nil
	}
	return &WrappedError{Diag: d}
}

// AsDiagnostic extracts a Diagnostic from an error chain, if present.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var we *WrappedError
	if errors.As(err, &we) {
		return we.Diag, true
	}
	return nil, false
}
