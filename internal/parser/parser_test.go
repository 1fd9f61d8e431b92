package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLanguageFromExtension(t *testing.T) {
	cases := map[string]Language{
		"main.go":     LangGo,
		"app.jsx":     LangJavaScript,
		"app.ts":      LangTypeScript,
		"app.tsx":     LangTSX,
		"script.py":   LangPython,
		"lib.rs":      LangRust,
		"Main.java":   LangJava,
		"Main.kt":     LangKotlin,
		"README.md":   "",
	}
	for path, want := range cases {
		got, ok := LanguageFromExtension(path)
		if want == "" {
			require.False(t, ok, path)
			continue
		}
		require.True(t, ok, path)
		require.Equal(t, want, got, path)
	}
}

func TestComplexityRating(t *testing.T) {
	cases := []struct {
		cyclomatic int
		want       string
	}{
		{1, "A"}, {5, "A"}, {6, "B"}, {10, "B"}, {11, "C"},
		{20, "C"}, {21, "D"}, {30, "D"}, {31, "E"}, {40, "E"}, {41, "F"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, complexityRating(c.cyclomatic))
	}
}

type fakeParser struct{ lang Language }

func (f *fakeParser) Language() Language { return f.lang }
func (f *fakeParser) Parse(ctx context.Context, path string, source []byte) (*Result, error) {
	return &Result{}, nil
}

func TestFactoryForAndSupportsPath(t *testing.T) {
	f := &Factory{parsers: map[Language]Parser{
		LangGo: &fakeParser{lang: LangGo},
	}}

	p, ok := f.For("main.go")
	require.True(t, ok)
	require.Equal(t, LangGo, p.Language())

	require.True(t, f.SupportsPath("main.go"))
	require.False(t, f.SupportsPath("main.py"))

	_, ok = f.For("README.md")
	require.False(t, ok)
}
