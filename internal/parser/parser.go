// Package parser implements the AST parser contract: per-language
// extraction of code objects plus intra-file CONTAINS relationships, import
// sites, and the call/reference/inheritance sites the cross-file
// relationship extractor (internal/relationship) resolves in Phase 2.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/relationship"
)

// Language identifies a parser's source language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// LanguageFromExtension detects a Language from a file's extension. The
// factory could select by extension or content-based language detection;
// this implementation uses extension only.
func LanguageFromExtension(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// ImportSite is a declared import statement.
type ImportSite struct {
	Path  string
	Alias string
	Line  int
}

// Result is everything a single Parse call extracts from one file: the
// the contract's "(CodeObject[], intra-file Relationship[])",
// expanded with the call/reference/inheritance sites that
// relationship.ExtractCrossFile needs for Phase 2 cross-file resolution.
type Result struct {
	Objects       []codemodel.CodeObject
	Relationships []codemodel.Relationship // intra-file: CONTAINS (class/type to method)
	Imports       []ImportSite
	Calls         []relationship.CallSite
	References    []relationship.ReferenceSite
	Inheritance   []relationship.InheritanceSite
}

// Parser extracts code objects and intra-file relationships from one
// file's source.
type Parser interface {
	Parse(ctx context.Context, path string, source []byte) (*Result, error)
	Language() Language
}

// Factory selects a Parser by file extension. A parser MAY fail for an
// individual file; Factory itself never fails, it simply
// reports "no parser for this language" via the bool return of For.
type Factory struct {
	parsers map[Language]Parser
}

// NewFactory builds a Factory over every language this build supports.
// newLanguageParsers is provided by treesitter.go (cgo builds, one real
// tree-sitter-backed Parser per language) or stub.go (!cgo builds, none).
func NewFactory() *Factory {
	f := &Factory{parsers: make(map[Language]Parser)}
	for _, p := range newLanguageParsers() {
		f.parsers[p.Language()] = p
	}
	return f
}

// For returns the Parser registered for path's language, if any.
func (f *Factory) For(path string) (Parser, bool) {
	lang, ok := LanguageFromExtension(path)
	if !ok {
		return nil, false
	}
	p, ok := f.parsers[lang]
	return p, ok
}

// SupportsPath reports whether Factory has a parser for path's language.
func (f *Factory) SupportsPath(path string) bool {
	_, ok := f.For(path)
	return ok
}

// complexityRating buckets cyclomatic complexity into A-F
// rating (thresholds 5/10/20/30/40).
func complexityRating(cyclomatic int) string {
	switch {
	case cyclomatic <= 5:
		return "A"
	case cyclomatic <= 10:
		return "B"
	case cyclomatic <= 20:
		return "C"
	case cyclomatic <= 30:
		return "D"
	case cyclomatic <= 40:
		return "E"
	default:
		return "F"
	}
}
