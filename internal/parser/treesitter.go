//go:build cgo

package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codecontext/codecontext-core/internal/codemodel"
	"github.com/codecontext/codecontext-core/internal/relationship"
)

func newLanguageParsers() []Parser {
	langs := []Language{
		LangGo, LangJavaScript, LangTypeScript, LangTSX,
		LangPython, LangRust, LangJava, LangKotlin,
	}
	parsers := make([]Parser, 0, len(langs))
	for _, lang := range langs {
		parsers = append(parsers, &treeSitterParser{lang: lang})
	}
	return parsers
}

func tsLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("parser: unsupported language %q", lang)
	}
}

// treeSitterParser implements Parser for one language using tree-sitter: it
// walks the parse tree for classes/functions, extracts names and
// signatures, and scores cyclomatic/cognitive complexity.
type treeSitterParser struct {
	lang Language
}

func (p *treeSitterParser) Language() Language { return p.lang }

func (p *treeSitterParser) Parse(ctx context.Context, path string, source []byte) (*Result, error) {
	tsLang, err := tsLanguage(p.lang)
	if err != nil {
		return nil, err
	}

	sp := sitter.NewParser()
	sp.SetLanguage(tsLang)
	tree, err := sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", path, err)
	}
	root := tree.RootNode()

	res := &Result{}
	w := &fileWalk{
		lang:     p.lang,
		path:     path,
		source:   source,
		result:   res,
	}
	w.walkTopLevel(root)
	return res, nil
}

// fileWalk carries the per-file state needed while building codemodel
// objects and relationship sites out of a parsed tree.
type fileWalk struct {
	lang   Language
	path   string
	source []byte
	result *Result
}

// walkTopLevel extracts top-level functions, classes (with their nested
// methods and inheritance sites), and imports, then scans the whole tree
// for call sites belonging to whichever enclosing object contains them.
func (w *fileWalk) walkTopLevel(root *sitter.Node) {
	classTypes := classNodeTypes(w.lang)
	for _, fn := range findNodes(root, functionNodeTypes(w.lang)) {
		nested := false
		for p := fn.Parent(); p != nil; p = p.Parent() {
			if contains(classTypes, p.Type()) {
				nested = true
				break
			}
		}
		if nested {
			continue // added below as a method of its class
		}
		w.addFunction(fn, "", "")
	}

	for _, cls := range findNodes(root, classNodeTypes(w.lang)) {
		parentID := w.addClass(cls)
		if parentID == "" {
			continue
		}
		for _, m := range findNodes(cls, methodNodeTypes(w.lang)) {
			w.addFunction(m, parentID, w.className(cls))
		}
		w.addInheritance(cls, parentID)
	}

	for _, imp := range findNodes(root, importNodeTypes(w.lang)) {
		w.addImport(imp)
	}

	w.addCallsAndReferences(root)
}

func (w *fileWalk) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.source[n.StartByte():n.EndByte()])
}

func (w *fileWalk) line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func (w *fileWalk) endLine(n *sitter.Node) int { return int(n.EndPoint().Row) + 1 }

func (w *fileWalk) addFunction(node *sitter.Node, parentID, container string) {
	name := w.functionName(node)
	if name == "" {
		return
	}
	objType := codemodel.ObjectFunction
	if parentID != "" || node.Type() == "method_declaration" || node.Type() == "method_definition" {
		objType = codemodel.ObjectMethod
	}

	qualified := name
	if container != "" {
		qualified = container + "." + name
	}

	metadata := w.complexityMetadata(node)
	if parentID != "" {
		metadata["parent_id"] = parentID
	}

	obj := codemodel.NewCodeObject(codemodel.CodeObject{
		Name:          name,
		QualifiedName: qualified,
		ObjectType:    objType,
		Language:      string(w.lang),
		FilePath:      w.path,
		RelativePath:  w.path,
		StartLine:     w.line(node),
		EndLine:       w.endLine(node),
		Content:       w.text(node),
		Signature:     w.signature(node),
		Metadata:      metadata,
	})
	w.result.Objects = append(w.result.Objects, obj)

	if parentID != "" {
		parent := w.findObjectByID(parentID)
		if parent != nil {
			w.result.Relationships = append(w.result.Relationships, codemodel.NewRelationship(codemodel.Relationship{
				SourceID:     parentID,
				SourceName:   parent.Name,
				SourceType:   string(parent.ObjectType),
				TargetID:     obj.ID,
				TargetName:   obj.Name,
				TargetType:   string(obj.ObjectType),
				RelationType: codemodel.RelationContains,
			}))
		}
	}
}

func (w *fileWalk) findObjectByID(id string) *codemodel.CodeObject {
	for i := range w.result.Objects {
		if w.result.Objects[i].ID == id {
			return &w.result.Objects[i]
		}
	}
	return nil
}

func (w *fileWalk) addClass(node *sitter.Node) string {
	name := w.className(node)
	if name == "" {
		return ""
	}
	kind := classKind(w.lang, node.Type())
	objType := codemodel.ObjectType_
	switch kind {
	case "class":
		objType = codemodel.ObjectClass
	case "interface":
		objType = codemodel.ObjectInterface
	}

	obj := codemodel.NewCodeObject(codemodel.CodeObject{
		Name:          name,
		QualifiedName: name,
		ObjectType:    objType,
		Language:      string(w.lang),
		FilePath:      w.path,
		RelativePath:  w.path,
		StartLine:     w.line(node),
		EndLine:       w.endLine(node),
		Content:       w.text(node),
		Signature:     w.classSignature(node),
	})
	w.result.Objects = append(w.result.Objects, obj)
	return obj.ID
}

func (w *fileWalk) addImport(node *sitter.Node) {
	path := w.importPath(node)
	if path == "" {
		return
	}
	w.result.Imports = append(w.result.Imports, ImportSite{Path: path, Line: w.line(node)})
}

func (w *fileWalk) addInheritance(classNode *sitter.Node, sourceID string) {
	identTypes := []string{"type_identifier", "identifier", "simple_identifier"}
	for _, n := range findNodes(classNode, inheritanceNodeTypes(w.lang)) {
		implementsClauses := findNodes(n, []string{"implements_clause"})
		extendsClauses := findNodes(n, []string{"extends_clause"})

		if len(implementsClauses) == 0 && len(extendsClauses) == 0 {
			// No sub-clause wrapping (Java's superclass/super_interfaces,
			// Kotlin's delegation_specifier): the node itself names the base.
			kind := relationship.KindExtends
			if n.Type() == "super_interfaces" {
				kind = relationship.KindImplements
			}
			for _, ident := range findNodes(n, identTypes) {
				w.addBase(sourceID, w.text(ident), kind)
			}
			continue
		}

		for _, clause := range implementsClauses {
			for _, ident := range findNodes(clause, identTypes) {
				w.addBase(sourceID, w.text(ident), relationship.KindImplements)
			}
		}
		for _, clause := range extendsClauses {
			for _, ident := range findNodes(clause, identTypes) {
				w.addBase(sourceID, w.text(ident), relationship.KindExtends)
			}
		}
	}
}

func (w *fileWalk) addBase(sourceID, base string, kind relationship.InheritanceKind) {
	if base == "" {
		return
	}
	w.result.Inheritance = append(w.result.Inheritance, relationship.InheritanceSite{
		SourceID: sourceID,
		BaseName: base,
		Language: string(w.lang),
		Kind:     kind,
	})
}

// addCallsAndReferences walks every call expression in the file and
// attributes it to the nearest enclosing object recorded in
// w.result.Objects (by line range), since CodeContext resolves calls
// per-source-object rather than per-statement. Bare identifier references
// are not collected, so Result.References stays empty.
func (w *fileWalk) addCallsAndReferences(root *sitter.Node) {
	for _, call := range findNodes(root, callNodeTypes(w.lang)) {
		sourceID := w.enclosingObjectID(w.line(call))
		if sourceID == "" {
			continue
		}
		name := w.calleeName(call)
		if name == "" {
			continue
		}
		w.result.Calls = append(w.result.Calls, relationship.CallSite{
			SourceID:   sourceID,
			CalleeName: name,
		})
	}
}

// enclosingObjectID returns the innermost parsed object whose [StartLine,
// EndLine] contains line, preferring the narrowest (most nested) match.
func (w *fileWalk) enclosingObjectID(line int) string {
	bestID := ""
	bestSpan := -1
	for i := range w.result.Objects {
		obj := &w.result.Objects[i]
		if line < obj.StartLine || line > obj.EndLine {
			continue
		}
		span := obj.EndLine - obj.StartLine
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			bestID = obj.ID
		}
	}
	return bestID
}

func (w *fileWalk) complexityMetadata(node *sitter.Node) map[string]interface{} {
	cyclomatic := 1
	for _, d := range findNodes(node, decisionNodeTypes(w.lang)) {
		if d == node {
			continue
		}
		if isBooleanOperatorNode(d) && !w.isLogicalOperator(d) {
			continue
		}
		cyclomatic++
	}

	cognitive := w.cognitiveComplexity(node, 0)
	loc := w.endLine(node) - w.line(node) + 1
	nesting := w.maxNestingDepth(node, 0)

	return map[string]interface{}{
		"cyclomatic_complexity": cyclomatic,
		"cognitive_complexity":  cognitive,
		"nesting_depth":         nesting,
		"lines_of_code":         loc,
		"complexity_rating":     complexityRating(cyclomatic),
	}
}

func isBooleanOperatorNode(n *sitter.Node) bool {
	return n.Type() == "binary_expression" || n.Type() == "boolean_operator"
}

// isLogicalOperator reports whether a binary_expression/boolean_operator
// node's operator is && / || (or Python's and/or), so only logical
// short-circuit operators add a decision point.
func (w *fileWalk) isLogicalOperator(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch w.lang {
		case LangPython:
			if child.Type() == "and" || child.Type() == "or" {
				return true
			}
		default:
			text := w.text(child)
			if text == "&&" || text == "||" {
				return true
			}
		}
	}
	return false
}

func (w *fileWalk) cognitiveComplexity(node *sitter.Node, nesting int) int {
	if node == nil {
		return 0
	}
	total := 0
	nestingTypes := nestingNodeTypes(w.lang)
	decisionTypes := decisionNodeTypes(w.lang)

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		childNesting := nesting
		if contains(decisionTypes, child.Type()) {
			if !isBooleanOperatorNode(child) || w.isLogicalOperator(child) {
				total += 1 + nesting
			}
		}
		if contains(nestingTypes, child.Type()) {
			childNesting = nesting + 1
		}
		total += w.cognitiveComplexity(child, childNesting)
	}
	return total
}

func (w *fileWalk) maxNestingDepth(node *sitter.Node, depth int) int {
	if node == nil {
		return depth
	}
	nestingTypes := nestingNodeTypes(w.lang)
	max := depth
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		childDepth := depth
		if contains(nestingTypes, child.Type()) {
			childDepth++
		}
		if d := w.maxNestingDepth(child, childDepth); d > max {
			max = d
		}
	}
	return max
}

// functionName extracts a function/method node's name.
func (w *fileWalk) functionName(node *sitter.Node) string {
	var nameNode *sitter.Node
	switch w.lang {
	case LangGo:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			for i := 0; i < int(node.ChildCount()); i++ {
				if c := node.Child(i); c != nil && c.Type() == "identifier" {
					nameNode = c
					break
				}
			}
		}
	case LangKotlin:
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "simple_identifier" {
				nameNode = c
				break
			}
		}
	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode != nil {
		return w.text(nameNode)
	}

	switch node.Type() {
	case "arrow_function", "func_literal", "lambda", "lambda_expression",
		"closure_expression", "lambda_literal", "anonymous_function", "function_expression":
		return "<anonymous>"
	}
	return ""
}

// className extracts a class/type node's name.
func (w *fileWalk) className(node *sitter.Node) string {
	var nameNode *sitter.Node
	switch w.lang {
	case LangGo:
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "type_spec" {
				nameNode = c.ChildByFieldName("name")
				break
			}
		}
	case LangRust:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil && node.Type() == "impl_item" {
			for i := 0; i < int(node.ChildCount()); i++ {
				if c := node.Child(i); c != nil && c.Type() == "type_identifier" {
					nameNode = c
					break
				}
			}
		}
	case LangJava, LangKotlin:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			for i := 0; i < int(node.ChildCount()); i++ {
				c := node.Child(i)
				if c != nil && (c.Type() == "identifier" || c.Type() == "simple_identifier") {
					nameNode = c
					break
				}
			}
		}
	default:
		nameNode = node.ChildByFieldName("name")
	}

	return w.text(nameNode)
}

// signature extracts a function signature: everything up to the first
// newline or opening brace.
func (w *fileWalk) signature(node *sitter.Node) string {
	text := w.text(node)
	for i, b := range []byte(text) {
		if b == '\n' || b == '{' {
			return strings.TrimSpace(text[:i])
		}
	}
	if len(text) < 200 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:200]) + "..."
}

func (w *fileWalk) classSignature(node *sitter.Node) string {
	text := w.text(node)
	for i, b := range []byte(text) {
		if b == '\n' || b == '{' || b == ':' {
			if sig := strings.TrimSpace(text[:i]); sig != "" {
				return sig
			}
		}
	}
	if len(text) < 100 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:100]) + "..."
}

func (w *fileWalk) importPath(node *sitter.Node) string {
	switch w.lang {
	case LangGo:
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "interpreted_string_literal" {
				unquoted, err := strconv.Unquote(w.text(c))
				if err == nil {
					return unquoted
				}
				return strings.Trim(w.text(c), `"`)
			}
		}
	default:
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c == nil {
				continue
			}
			if c.Type() == "string" || c.Type() == "string_literal" {
				return strings.Trim(w.text(c), `"'`)
			}
		}
	}
	return ""
}

// calleeName extracts the identifier being invoked in a call expression.
func (w *fileWalk) calleeName(call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.Child(0)
	}
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier", "simple_identifier":
		return w.text(fn)
	case "selector_expression", "member_expression", "field_expression", "attribute":
		if field := fn.ChildByFieldName("field"); field != nil {
			return w.text(field)
		}
		if field := fn.ChildByFieldName("property"); field != nil {
			return w.text(field)
		}
		if field := fn.ChildByFieldName("attribute"); field != nil {
			return w.text(field)
		}
		if n := int(fn.ChildCount()); n > 0 {
			return w.text(fn.Child(n - 1))
		}
	}
	return w.text(fn)
}

// findNodes walks node's subtree (including node itself) collecting every
// descendant whose type is in types.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	if len(types) == 0 || root == nil {
		return nil
	}
	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if contains(types, n.Type()) {
			result = append(result, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return result
}
