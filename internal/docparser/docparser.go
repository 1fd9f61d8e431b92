// Package docparser implements document and config chunking:
// split into chunks of size in [min_chunk_size, max_chunk_size] with
// overlap, validate/split oversized chunks at the nearest sentence/heading
// boundary, merge undersized neighbors when their node types agree, and
// stamp line numbers. Config files additionally emit config_key/config_value
// document nodes with environment-variable references recorded in metadata.
package docparser

import (
	"path/filepath"
	"strings"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// Options configures chunk sizing.
type Options struct {
	MinChunkSize    int
	MaxChunkSize    int
	Overlap         int
	MaxHeadingLevel int
}

// DefaultOptions returns the package's defaults: 4096-character target
// chunks with 400-character overlap (~10%), and a min_chunk_size small
// enough that a short paragraph still survives as its own node rather than
// always being forced to merge.
func DefaultOptions() Options {
	return Options{
		MinChunkSize:    256,
		MaxChunkSize:    4096,
		Overlap:         400,
		MaxHeadingLevel: 3,
	}
}

// Chunker turns one document's source into DocumentNodes.
type Chunker interface {
	Chunk(path string, source []byte) ([]codemodel.DocumentNode, error)
}

// Factory dispatches to a Chunker by file extension.
type Factory struct {
	opts Options
}

// NewFactory builds a Factory with opts.
func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

// For returns the Chunker appropriate for path, or false if path's
// extension is not a recognized document/config type.
func (f *Factory) For(path string) (Chunker, bool) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".md", ".markdown":
		return &markdownChunker{opts: f.opts}, true
	case ".txt", ".rst":
		return &textChunker{opts: f.opts}, true
	case ".toml", ".yaml", ".yml", ".json", ".ini", ".env", ".cfg", ".conf":
		return &configChunker{opts: f.opts, format: configFormat(ext)}, true
	default:
		return nil, false
	}
}

// SupportsPath reports whether Factory has a chunker for path's extension.
func (f *Factory) SupportsPath(path string) bool {
	_, ok := f.For(path)
	return ok
}

// rawChunk is an intermediate chunk before line-stamping and merging: text
// plus the classification that drives the merge pass's "same type" rule.
type rawChunk struct {
	text     string
	nodeType codemodel.NodeType
	level    int
}

// splitMarkdown runs the heading+recursive hybrid split, dividing oversized
// chunks at the nearest sentence or heading boundary, then classifies each
// resulting section.
func splitMarkdown(text string, opts Options) []rawChunk {
	var raws []rawChunk
	for _, section := range splitByHeadings(text, opts.MaxHeadingLevel) {
		if len(section.text) <= opts.MaxChunkSize {
			raws = append(raws, rawChunk{text: section.text, nodeType: classify(section), level: section.level})
			continue
		}
		for _, sub := range recursiveSplit(section.text, opts.MaxChunkSize, opts.Overlap, defaultSeparators) {
			raws = append(raws, rawChunk{text: sub, nodeType: classify(section), level: section.level})
		}
	}
	return raws
}

func classify(section headerSplit) codemodel.NodeType {
	trimmed := strings.TrimSpace(section.text)
	if strings.HasPrefix(trimmed, "```") || isFencedCodeOnly(trimmed) {
		return codemodel.NodeCodeBlock
	}
	if section.level > 0 {
		return codemodel.NodeHeading
	}
	return codemodel.NodeParagraph
}

// isFencedCodeOnly reports whether text is entirely one fenced code block
// (opening and closing ``` with only code lines between), so a heading
// section made up of nothing but a code sample is still tagged code_block.
func isFencedCodeOnly(text string) bool {
	lines := strings.Split(text, "\n")
	fences := 0
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			fences++
		}
	}
	return fences >= 2 && fences%2 == 0
}

// mergeUndersized joins adjacent raw chunks of the same node type when doing
// so keeps the result at or under MaxChunkSize, so long as at least one of
// the pair is under MinChunkSize.
func mergeUndersized(raws []rawChunk, opts Options) []rawChunk {
	if len(raws) == 0 {
		return raws
	}
	merged := []rawChunk{raws[0]}
	for _, next := range raws[1:] {
		last := &merged[len(merged)-1]
		combinedSize := len(last.text) + 2 + len(next.text)
		bothSameType := last.nodeType == next.nodeType
		eitherUndersized := len(last.text) < opts.MinChunkSize || len(next.text) < opts.MinChunkSize

		if bothSameType && eitherUndersized && combinedSize <= opts.MaxChunkSize {
			last.text = last.text + "\n\n" + next.text
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// stampLines finds each chunk's 1-indexed [start_line, end_line] span
// within the original document by locating its text verbatim. A chunk
// produced by the recursive splitter's overlap may not appear verbatim if
// its neighbor's edit already consumed the match point; in that case the
// chunk is stamped with line 1 as both start and end line.
func stampLines(fullText string, raws []rawChunk) []struct {
	rawChunk
	startLine int
	endLine   int
} {
	type stamped = struct {
		rawChunk
		startLine int
		endLine   int
	}
	out := make([]stamped, 0, len(raws))
	searchFrom := 0
	for _, r := range raws {
		startLine, endLine := 1, 1
		if idx := strings.Index(fullText[searchFrom:], r.text); idx >= 0 {
			abs := searchFrom + idx
			startLine = strings.Count(fullText[:abs], "\n") + 1
			endLine = startLine + strings.Count(r.text, "\n")
			searchFrom = abs + len(r.text)
		}
		out = append(out, stamped{rawChunk: r, startLine: startLine, endLine: endLine})
	}
	return out
}

func buildNodes(path string, raws []rawChunk, full string) []codemodel.DocumentNode {
	stamped := stampLines(full, raws)
	nodes := make([]codemodel.DocumentNode, 0, len(stamped))
	for i, s := range stamped {
		metadata := map[string]interface{}{}
		if code := extractCodeReferences(s.text); len(code) > 0 {
			metadata["related_code"] = code
		}
		node := codemodel.NewDocumentNode(codemodel.DocumentNode{
			NodeType:     s.nodeType,
			Content:      s.text,
			FilePath:     path,
			RelativePath: path,
			StartLine:    s.startLine,
			EndLine:      s.endLine,
			Level:        s.level,
			ChunkIndex:   i,
			TotalChunks:  len(stamped),
			Metadata:     metadata,
		})
		nodes = append(nodes, node)
	}
	return nodes
}

// extractCodeReferences pulls inline-code identifiers (`foo.Bar`) out of
// prose and records them in the node's metadata, so MENTIONS
// relationships can later be derived from them.
func extractCodeReferences(text string) []string {
	var refs []string
	seen := map[string]bool{}
	i := 0
	for i < len(text) {
		start := strings.IndexByte(text[i:], '`')
		if start == -1 {
			break
		}
		start += i
		end := strings.IndexByte(text[start+1:], '`')
		if end == -1 {
			break
		}
		end += start + 1
		token := text[start+1 : end]
		if looksLikeIdentifier(token) && !seen[token] {
			seen[token] = true
			refs = append(refs, token)
		}
		i = end + 1
	}
	return refs
}

func looksLikeIdentifier(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '_', r == '.', r == ':', r == '(', r == ')', r == '*', r == '-':
		default:
			return false
		}
	}
	return hasLetter
}

// markdownChunker implements Chunker for markdown documents.
type markdownChunker struct{ opts Options }

func (c *markdownChunker) Chunk(path string, source []byte) ([]codemodel.DocumentNode, error) {
	text := string(source)
	raws := mergeUndersized(splitMarkdown(text, c.opts), c.opts)
	return buildNodes(path, raws, text), nil
}

// textChunker implements Chunker for plain prose with no heading structure:
// a single recursive split pass, still merge-and-stamp.
type textChunker struct{ opts Options }

func (c *textChunker) Chunk(path string, source []byte) ([]codemodel.DocumentNode, error) {
	text := string(source)
	var raws []rawChunk
	for _, sub := range recursiveSplit(text, c.opts.MaxChunkSize, c.opts.Overlap, defaultSeparators) {
		raws = append(raws, rawChunk{text: sub, nodeType: codemodel.NodeParagraph})
	}
	raws = mergeUndersized(raws, c.opts)
	return buildNodes(path, raws, text), nil
}
