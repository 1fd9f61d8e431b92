// Package formatter implements the Result Formatter: the public
// boundary that turns a retriever.Hit into a minimal or expanded result
// record, rendered as either human-readable text or JSON from one shared
// underlying struct.
package formatter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

// OutputFormat selects how Format renders a Record.
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// ExpandKey names one of the expanded fields a caller may request:
// signature, snippet, content, parent, relationships, complexity, or
// impact.direct_callers.
type ExpandKey string

const (
	ExpandSignature     ExpandKey = "signature"
	ExpandSnippet       ExpandKey = "snippet"
	ExpandContent       ExpandKey = "content"
	ExpandParent        ExpandKey = "parent"
	ExpandRelationships ExpandKey = "relationships"
	ExpandComplexity    ExpandKey = "complexity"
	ExpandImpact        ExpandKey = "impact.direct_callers"
)

// RelatedItem is one sampled relationship rendered as {name, type, file,
// line}.
type RelatedItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// Relationships is a sampled slice of a record's relationships plus the
// true total count, so callers can tell when the sample was truncated.
type Relationships struct {
	Items      []RelatedItem `json:"items"`
	TotalCount int           `json:"total_count"`
}

// Impact is the expanded "impact.direct_callers" key: the names of
// objects that call this one directly, read off its IncomingRelationships.
type Impact struct {
	DirectCallers []string `json:"direct_callers"`
}

// Record is the single underlying shape both the human and JSON formatters
// render -- minimal fields are always populated, expanded fields are
// populated only when requested.
type Record struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	File     string  `json:"file"`
	Lines    string  `json:"lines"`
	Language string  `json:"language"`
	Score    float64 `json:"score"`

	Signature     string                 `json:"signature,omitempty"`
	Snippet       string                 `json:"snippet,omitempty"`
	Content       string                 `json:"content,omitempty"`
	Parent        string                 `json:"parent,omitempty"`
	Relationships *Relationships         `json:"relationships,omitempty"`
	Complexity    map[string]interface{} `json:"complexity,omitempty"`
	Impact        *Impact                `json:"impact,omitempty"`
}

// snippetLines bounds how much of Content becomes the "snippet" key, to
// keep it distinct from the unbounded "content" key.
const snippetLines = 3

// relationshipSampleSize bounds how many relationships Relationships.Items
// carries regardless of TotalCount.
const relationshipSampleSize = 10

// BuildRecord renders obj at minimal density, then layers in any keys
// named in expand. score is the retriever's final ranked score.
func BuildRecord(obj codemodel.CodeObject, score float64, expand []ExpandKey) Record {
	rec := Record{
		Name:     obj.Name,
		Type:     string(obj.ObjectType),
		File:     obj.FilePath,
		Lines:    fmt.Sprintf("%d-%d", obj.StartLine, obj.EndLine),
		Language: obj.Language,
		Score:    score,
	}
	for _, key := range expand {
		applyExpand(&rec, obj, key)
	}
	return rec
}

func applyExpand(rec *Record, obj codemodel.CodeObject, key ExpandKey) {
	switch key {
	case ExpandSignature:
		rec.Signature = obj.Signature
	case ExpandSnippet:
		rec.Snippet = firstLines(obj.Content, snippetLines)
	case ExpandContent:
		rec.Content = obj.Content
	case ExpandParent:
		rec.Parent = parentName(obj)
	case ExpandRelationships:
		rels := relationshipsFor(obj)
		rec.Relationships = &rels
	case ExpandComplexity:
		rec.Complexity = obj.Metadata
	case ExpandImpact:
		impact := directCallers(obj)
		rec.Impact = &impact
	}
}

// parentName reads the containing scope's name off the denormalized
// CONTAINED_BY relationship, qualified_name path through
// containing scopes collapsed to just the immediate parent.
func parentName(obj codemodel.CodeObject) string {
	for _, rel := range obj.OutgoingRelationships {
		if rel.RelationType == codemodel.RelationContainedBy {
			return rel.TargetName
		}
	}
	return ""
}

func relationshipsFor(obj codemodel.CodeObject) Relationships {
	all := make([]codemodel.Relationship, 0, len(obj.OutgoingRelationships)+len(obj.IncomingRelationships))
	all = append(all, obj.OutgoingRelationships...)
	all = append(all, obj.IncomingRelationships...)

	items := make([]RelatedItem, 0, min(len(all), relationshipSampleSize))
	for _, rel := range all {
		if len(items) >= relationshipSampleSize {
			break
		}
		items = append(items, RelatedItem{
			Name: relationName(rel), Type: string(rel.RelationType),
			File: relationFile(rel), Line: relationLine(rel),
		})
	}
	return Relationships{Items: items, TotalCount: len(all)}
}

func directCallers(obj codemodel.CodeObject) Impact {
	var callers []string
	for _, rel := range obj.IncomingRelationships {
		if rel.RelationType == codemodel.RelationCalledBy {
			callers = append(callers, rel.SourceName)
		}
	}
	return Impact{DirectCallers: callers}
}

// relationName/File/Line prefer the target identity (an outgoing edge's
// destination); for an incoming edge the source identity describes the
// other end of the relationship, which SourceName etc. already holds.
func relationName(rel codemodel.Relationship) string {
	if rel.TargetName != "" {
		return rel.TargetName
	}
	return rel.SourceName
}

func relationFile(rel codemodel.Relationship) string {
	if rel.TargetFile != "" {
		return rel.TargetFile
	}
	return rel.SourceFile
}

func relationLine(rel codemodel.Relationship) int {
	if rel.TargetLine != 0 {
		return rel.TargetLine
	}
	return rel.SourceLine
}

// FromPayload decodes a vectorstore point's payload back into the
// CodeObject shape BuildRecord expects, the same round-trip
// internal/indexer's incremental sync does to reconstruct unchanged
// objects from their stored payload rather than a second store type.
func FromPayload(id string, payload map[string]interface{}) codemodel.CodeObject {
	obj := codemodel.CodeObject{ID: id}
	if payload == nil {
		return obj
	}
	obj.Name, _ = payload["name"].(string)
	obj.QualifiedName, _ = payload["qualified_name"].(string)
	obj.FilePath, _ = payload["file_path"].(string)
	obj.RelativePath, _ = payload["relative_path"].(string)
	obj.Language, _ = payload["language"].(string)
	obj.Content, _ = payload["content"].(string)
	obj.Signature, _ = payload["signature"].(string)
	obj.Docstring, _ = payload["docstring"].(string)
	obj.Checksum, _ = payload["checksum"].(string)
	obj.StartLine = payloadInt(payload["start_line"])
	obj.EndLine = payloadInt(payload["end_line"])
	obj.Metadata, _ = payload["metadata"].(map[string]interface{})
	if ot, ok := payload["object_type"].(string); ok {
		obj.ObjectType = codemodel.ObjectType(ot)
	}
	obj.OutgoingRelationships = payloadRelationships(payload["outgoing_relationships"])
	obj.IncomingRelationships = payloadRelationships(payload["incoming_relationships"])
	return obj
}

func payloadInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func payloadRelationships(v interface{}) []codemodel.Relationship {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var rels []codemodel.Relationship
	if err := json.Unmarshal(raw, &rels); err != nil {
		return nil
	}
	return rels
}

// Results is the top-level shape Format renders: a query's ranked records
// plus the total count, the search command's equivalent of // SearchResponseCLI.
type Results struct {
	Query   string   `json:"query"`
	Total   int      `json:"total"`
	Records []Record `json:"records"`
}

// Format renders resp as either human-readable text or JSON, selected by
// format.
func Format(resp Results, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatResultsHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp Results) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}

func formatResultsHuman(resp Results) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Search Results for: %s\n", resp.Query))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Found %d matches\n\n", resp.Total))

	for i, rec := range resp.Records {
		b.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, rec.Name, rec.Type))
		b.WriteString(fmt.Sprintf("   File: %s:%s\n", rec.File, rec.Lines))
		b.WriteString(fmt.Sprintf("   Score: %.4f\n", rec.Score))
		if rec.Signature != "" {
			b.WriteString(fmt.Sprintf("   sig: %s\n", rec.Signature))
		}
		if rec.Snippet != "" {
			b.WriteString(fmt.Sprintf("   Snippet: %s\n", rec.Snippet))
		}
		if rec.Parent != "" {
			b.WriteString(fmt.Sprintf("   Parent: %s\n", rec.Parent))
		}
		if rec.Relationships != nil {
			b.WriteString(fmt.Sprintf("   Relationships: %d (showing %d)\n", rec.Relationships.TotalCount, len(rec.Relationships.Items)))
			for _, item := range rec.Relationships.Items {
				b.WriteString(fmt.Sprintf("     - %s %s (%s:%d)\n", item.Type, item.Name, item.File, item.Line))
			}
		}
		if rec.Impact != nil && len(rec.Impact.DirectCallers) > 0 {
			b.WriteString(fmt.Sprintf("   Direct callers: %s\n", strings.Join(rec.Impact.DirectCallers, ", ")))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

func firstLines(content string, n int) string {
	count := 0
	for i, r := range content {
		if r == '\n' {
			count++
			if count == n {
				return content[:i]
			}
		}
	}
	return content
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
