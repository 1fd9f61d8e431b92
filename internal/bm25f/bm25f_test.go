package bm25f

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecontext/codecontext-core/internal/tokenizer"
)

func newEncoder() *Encoder {
	tok := tokenizer.New(tokenizer.DefaultStopwords, 1000)
	return New(DefaultConfig(), tok)
}

func TestHashTokenDeterministic(t *testing.T) {
	require.Equal(t, HashToken("payment"), HashToken("payment"))
	require.NotEqual(t, HashToken("payment"), HashToken("shipping"))
}

func TestEncodeQueryUnitWeights(t *testing.T) {
	enc := newEncoder()
	sparse := enc.EncodeQuery("payment gateway integration")
	require.Len(t, sparse, 3)
	for _, v := range sparse {
		require.Equal(t, 1.0, v)
	}
}

func TestEncodeDocumentWeightsByField(t *testing.T) {
	enc := newEncoder()
	sparse := enc.EncodeDocument([]Field{
		{Name: "name", Content: "payment"},
		{Name: "content", Content: "payment"},
	})
	require.Len(t, sparse, 1)

	idx := HashToken("payment")
	// name weight (15) dominates content weight (6) even with identical
	// term frequency and field length, since contributions sum across fields.
	require.Greater(t, sparse[idx], 15.0*(1.0*(1.2+1))/(1.0+1.2*(1-0.75+0.75*1.0/100.0))*0.99)
}

func TestSaturationMonotonic(t *testing.T) {
	enc := newEncoder()

	prev := 0.0
	for _, repeats := range []int{1, 2, 4, 8, 16} {
		content := ""
		for i := 0; i < repeats; i++ {
			content += "payment "
		}
		sparse := enc.EncodeDocument([]Field{{Name: "content", Content: content}})
		val := sparse[HashToken("payment")]
		require.GreaterOrEqual(t, val, prev)
		prev = val
	}
}

func TestPrefixSaturationDecreases(t *testing.T) {
	enc := newEncoder()

	full := enc.EncodeDocument([]Field{{Name: "content", Content: "payment gateway integration service retry logic"}})
	prefix := enc.EncodeDocument([]Field{{Name: "content", Content: "payment gateway"}})

	// Shortening the field lowers |F|, which lowers the length-normalization
	// denominator and therefore can only raise or hold a fixed-tf token's
	// contribution -- but here tf for "payment" is 1 in both, so the
	// shorter field (lower |F|) yields a value >= the longer field's.
	require.GreaterOrEqual(t, prefix[HashToken("payment")], full[HashToken("payment")])
}

func TestUnknownFieldIgnored(t *testing.T) {
	enc := newEncoder()
	sparse := enc.EncodeDocument([]Field{{Name: "bogus_field", Content: "payment"}})
	require.Empty(t, sparse)
}
