//go:build !cgo

package parser

// newLanguageParsers returns no parsers when built without cgo (tree-sitter
// requires cgo). Factory.For then reports "no parser" for every path,
// degrading gracefully the way internal/symbols/stub.go does
// for its own tree-sitter dependency.
func newLanguageParsers() []Parser {
	return nil
}
