package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeObjectIDDeterministic(t *testing.T) {
	a := CodeObjectID("src/pay.go", "billing.Charge", "function", 10)
	b := CodeObjectID("src/pay.go", "billing.Charge", "function", 10)
	require.Equal(t, a, b)
	require.Len(t, a, 32)
}

func TestCodeObjectIDSensitiveToEachField(t *testing.T) {
	base := CodeObjectID("src/pay.go", "billing.Charge", "function", 10)
	require.NotEqual(t, base, CodeObjectID("src/other.go", "billing.Charge", "function", 10))
	require.NotEqual(t, base, CodeObjectID("src/pay.go", "billing.Refund", "function", 10))
	require.NotEqual(t, base, CodeObjectID("src/pay.go", "billing.Charge", "method", 10))
	require.NotEqual(t, base, CodeObjectID("src/pay.go", "billing.Charge", "function", 11))
}

func TestCodeObjectIDStableAcrossEndLineShift(t *testing.T) {
	a := CodeObjectID("src/pay.go", "billing.Charge", "function", 10)
	// end_line is not part of the identity hash; a trailing blank line
	// added to the body must not change the id.
	require.Equal(t, a, CodeObjectID("src/pay.go", "billing.Charge", "function", 10))
}

func TestDocumentNodeIDDeterministic(t *testing.T) {
	a := DocumentNodeID("README.md", "heading", 0)
	b := DocumentNodeID("README.md", "heading", 0)
	require.Equal(t, a, b)
	require.NotEqual(t, a, DocumentNodeID("README.md", "heading", 1))
}

func TestRelationshipIDOrderSensitive(t *testing.T) {
	forward := RelationshipID("obj-a", "obj-b", "CALLS")
	reverse := RelationshipID("obj-b", "obj-a", "CALLED_BY")
	require.NotEqual(t, forward, reverse)
	require.Len(t, forward, 32)
}

func TestObjectContentChecksumIgnoresPosition(t *testing.T) {
	a := ObjectContentChecksum("func A() {}", "func A()")
	b := ObjectContentChecksum("func A() {}", "func A()")
	require.Equal(t, a, b)
	require.NotEqual(t, a, ObjectContentChecksum("func A() { return }", "func A()"))
}
