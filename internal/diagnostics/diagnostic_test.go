package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	sp := NewSpan(Pos{File: "a.cm", Line: 1, Column: 1}, Pos{File: "a.cm", Line: 1, Column: 5})
	d := New(TYP001, "typecheck", sp, "expected %s, got %s", "felt", "bool")
	require.Equal(t, SeverityError, d.Severity)
	require.True(t, d.IsError())
	require.Equal(t, "expected felt, got bool", d.Message)

	err := Wrap(d)
	require.Error(t, err)
	got, ok := AsDiagnostic(err)
	require.True(t, ok)
	require.Same(t, d, got)
}

func TestWarningSeverity(t *testing.T) {
	d := Warning(FLW002, "flow", Span{}, "unreachable code")
	require.Equal(t, SeverityWarning, d.Severity)
	require.False(t, d.IsError())
}

func TestWithRelatedAndData(t *testing.T) {
	d := New(NAM002, "name", Span{}, "duplicate definition of %q", "x").
		WithRelated(Span{}, "first defined here").
		WithData("name", "x")
	require.Len(t, d.Related, 1)
	require.Equal(t, "x", d.Data["name"])
}

func TestToJSONDeterministic(t *testing.T) {
	d := New(PAR001, "parser", Span{}, "unexpected token")
	js1, err := d.ToJSON(false)
	require.NoError(t, err)
	js2, err := d.ToJSON(false)
	require.NoError(t, err)
	require.Equal(t, js1, js2)
}
