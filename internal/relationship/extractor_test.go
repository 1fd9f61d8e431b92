package relationship

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/codemodel"
)

func obj(filePath, qualified, name, objType, language string, line int) codemodel.CodeObject {
	return codemodel.NewCodeObject(codemodel.CodeObject{
		Name:          name,
		QualifiedName: qualified,
		ObjectType:    codemodel.ObjectType(objType),
		Language:      language,
		FilePath:      filePath,
		RelativePath:  filePath,
		StartLine:     line,
		EndLine:       line + 5,
	})
}

func TestExtractCrossFilePrefersQualifiedNameMatch(t *testing.T) {
	caller := obj("svc.go", "svc.Handle", "Handle", "function", "go", 10)
	callee := obj("pay.go", "billing.Charge", "Charge", "function", "go", 5)
	decoy := obj("other.go", "other.Charge", "Charge", "function", "go", 1)

	idx := NewIndex([]codemodel.CodeObject{caller, callee, decoy})
	rels := ExtractCrossFile(idx, []CallSite{
		{SourceID: caller.ID, CalleeName: "Charge", CalleeQualifiedName: "billing.Charge"},
	}, nil, nil)

	require.Len(t, rels, 1)
	require.Equal(t, callee.ID, rels[0].TargetID)
	require.Equal(t, codemodel.RelationCalls, rels[0].RelationType)
	require.InDelta(t, resolvedConfidence, rels[0].Metadata["confidence"].(float64), 1e-9)
}

func TestExtractCrossFileFallsBackToUniqueSimpleName(t *testing.T) {
	caller := obj("svc.go", "svc.Handle", "Handle", "function", "go", 10)
	callee := obj("pay.go", "billing.Charge", "Charge", "function", "go", 5)

	idx := NewIndex([]codemodel.CodeObject{caller, callee})
	rels := ExtractCrossFile(idx, []CallSite{
		{SourceID: caller.ID, CalleeName: "Charge"},
	}, nil, nil)

	require.Len(t, rels, 1)
	require.Equal(t, callee.ID, rels[0].TargetID)
	require.InDelta(t, uniqueNameConfidence, rels[0].Metadata["confidence"].(float64), 1e-9)
}

func TestExtractCrossFileDropsAmbiguousSimpleName(t *testing.T) {
	caller := obj("svc.go", "svc.Handle", "Handle", "function", "go", 10)
	a := obj("pay.go", "billing.Charge", "Charge", "function", "go", 5)
	b := obj("other.go", "other.Charge", "Charge", "function", "go", 1)

	idx := NewIndex([]codemodel.CodeObject{caller, a, b})
	rels := ExtractCrossFile(idx, []CallSite{
		{SourceID: caller.ID, CalleeName: "Charge"},
	}, nil, nil)

	require.Empty(t, rels)
}

func TestExtractCrossFileDropsCrossLanguageInheritance(t *testing.T) {
	child := obj("a.py", "a.Impl", "Impl", "class", "python", 1)
	base := obj("b.go", "b.Base", "Base", "class", "go", 1)

	idx := NewIndex([]codemodel.CodeObject{child, base})
	rels := ExtractCrossFile(idx, nil, nil, []InheritanceSite{
		{SourceID: child.ID, BaseName: "Base", Language: "python", Kind: KindExtends},
	})

	require.Empty(t, rels)
}

func TestExtractCrossFileResolvesInheritance(t *testing.T) {
	child := obj("a.go", "a.Impl", "Impl", "class", "go", 1)
	base := obj("b.go", "b.Base", "Base", "interface", "go", 1)

	idx := NewIndex([]codemodel.CodeObject{child, base})
	rels := ExtractCrossFile(idx, nil, nil, []InheritanceSite{
		{SourceID: child.ID, BaseName: "Base", Language: "go", Kind: KindImplements},
	})

	require.Len(t, rels, 1)
	require.Equal(t, codemodel.RelationImplements, rels[0].RelationType)
}

func TestExtractCrossFileReferencesUseLowerConfidence(t *testing.T) {
	source := obj("a.go", "a.Handle", "Handle", "function", "go", 1)
	target := obj("b.go", "b.Thing", "Thing", "variable", "go", 1)

	idx := NewIndex([]codemodel.CodeObject{source, target})
	rels := ExtractCrossFile(idx, nil, []ReferenceSite{
		{SourceID: source.ID, RefName: "Thing"},
	}, nil)

	require.Len(t, rels, 1)
	require.Equal(t, codemodel.RelationReferences, rels[0].RelationType)
	require.InDelta(t, referenceConfidence, rels[0].Metadata["confidence"].(float64), 1e-9)
}

func TestExtractContainsUsesParentIDMetadata(t *testing.T) {
	parent := obj("a.go", "a.Service", "Service", "class", "go", 1)
	child := codemodel.NewCodeObject(codemodel.CodeObject{
		Name:          "Handle",
		QualifiedName: "a.Service.Handle",
		ObjectType:    codemodel.ObjectMethod,
		Language:      "go",
		FilePath:      "a.go",
		StartLine:     2,
		EndLine:       3,
		Metadata:      map[string]interface{}{"parent_id": parent.ID},
	})

	idx := NewIndex([]codemodel.CodeObject{parent, child})
	rels := ExtractContains(idx, []codemodel.CodeObject{parent, child})

	require.Len(t, rels, 1)
	require.Equal(t, parent.ID, rels[0].SourceID)
	require.Equal(t, child.ID, rels[0].TargetID)
	require.Equal(t, codemodel.RelationContains, rels[0].RelationType)
}
