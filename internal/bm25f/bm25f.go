// Package bm25f implements the field-weighted BM25F sparse encoder used by
// the indexer and retriever, with per-field saturation and length
// normalization.
package bm25f

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/codecontext/codecontext-core/internal/tokenizer"
)

// DefaultFieldWeights are the per-field contribution weights used when no
// override is configured.
func DefaultFieldWeights() map[string]float64 {
	return map[string]float64{
		"name":           15,
		"qualified_name": 12,
		"signature":      10,
		"docstring":      8,
		"content":        6,
		"filename":       4,
		"file_path":      2,
	}
}

// Config holds the tunable parameters of the encoder.
type Config struct {
	FieldWeights map[string]float64
	K1           float64
	B            float64
	AvgDL        float64
}

// DefaultConfig returns defaults.
func DefaultConfig() Config {
	return Config{
		FieldWeights: DefaultFieldWeights(),
		K1:           1.2,
		B:            0.75,
		AvgDL:        100.0,
	}
}

// SparseVector is a mapping from stable 64-bit token hashes to weights.
type SparseVector map[uint64]float64

// Encoder builds BM25F sparse vectors for documents and queries.
type Encoder struct {
	cfg Config
	tok *tokenizer.Tokenizer
}

// New creates an Encoder using tok for both document and query
// tokenization, so that document and query hashes always agree.
func New(cfg Config, tok *tokenizer.Tokenizer) *Encoder {
	return &Encoder{cfg: cfg, tok: tok}
}

// HashToken returns the stable sparse index for a token: the first 8 hex
// digits (4 bytes) of SHA-256(token), interpreted as an unsigned integer
// and stored in the 64-bit sparse-index type. Encoder and
// vector store agree on this formula without sharing a vocabulary;
// collisions within the 32-bit range are accepted as having under 0.1%
// impact at typical repo scale.
func HashToken(token string) uint64 {
	sum := sha256.Sum256([]byte(token))
	return uint64(binary.BigEndian.Uint32(sum[:4]))
}

// Field is one named, weighted field of a document, e.g. {"name", obj.Name}.
type Field struct {
	Name    string
	Content string
}

// EncodeDocument builds the sparse vector for a document given its fields.
// For each field f with weight w_f and tokenized length |F|, each token t
// with field-frequency tf contributes:
//
//	w_f * (tf * (k1+1)) / (tf + k1*(1 - b + b*|F|/avgDL))
//
// summed across fields into a single index -> value map.
func (e *Encoder) EncodeDocument(fields []Field) SparseVector {
	sparse := make(SparseVector)

	for _, field := range fields {
		weight, ok := e.cfg.FieldWeights[field.Name]
		if !ok || weight == 0 {
			continue
		}

		tokens := e.tok.Tokenize(field.Content)
		fieldLen := float64(len(tokens))
		if fieldLen == 0 {
			continue
		}

		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}

		denom := 1 - e.cfg.B + e.cfg.B*fieldLen/e.cfg.AvgDL
		for token, tf := range freq {
			tfFloat := float64(tf)
			contribution := weight * (tfFloat * (e.cfg.K1 + 1)) / (tfFloat + e.cfg.K1*denom)
			idx := HashToken(token)
			sparse[idx] += contribution
		}
	}

	return sparse
}

// EncodeQuery tokenizes the query and emits a unit-weighted sparse vector:
// one entry per distinct token with value 1.0, no IDF at query time.
func (e *Encoder) EncodeQuery(query string) SparseVector {
	sparse := make(SparseVector)
	for _, t := range e.tok.Tokenize(query) {
		sparse[HashToken(t)] = 1.0
	}
	return sparse
}
