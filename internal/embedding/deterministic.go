package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sort"
)

// DeterministicProvider is a reference Provider with no external model
// dependency: each vector's components are derived from repeated SHA-256
// hashing of the text and instruction type, so the same input always
// embeds to the same vector and different inputs embed to (with
// overwhelming probability) different vectors. Exists so internal/indexer
// and internal/retriever can be tested end to end without a real model.
type DeterministicProvider struct {
	dim   int
	batch int
}

// NewDeterministicProvider returns a DeterministicProvider of the given
// dimension and batch size.
func NewDeterministicProvider(dim, batch int) *DeterministicProvider {
	return &DeterministicProvider{dim: dim, batch: batch}
}

// Embed implements Provider. It deliberately processes texts sorted by
// length internally, mirroring a real provider's throughput optimization,
// before restoring input order, so tests relying on this provider also
// exercise that output-order guarantee.
func (p *DeterministicProvider) Embed(_ context.Context, texts []string, instruction InstructionType) ([]Vector, error) {
	order := make([]int, len(texts))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return len(texts[order[i]]) < len(texts[order[j]])
	})

	out := make([]Vector, len(texts))
	for _, i := range order {
		out[i] = p.embedOne(texts[i], instruction)
	}
	return out, nil
}

func (p *DeterministicProvider) embedOne(text string, instruction InstructionType) Vector {
	vec := make(Vector, p.dim)
	block := []byte(string(instruction) + "\x00" + text)
	counter := uint32(0)
	for i := 0; i < p.dim; i += 8 {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], counter)
		h := sha256.Sum256(append(block, buf[:]...))
		for j := 0; j < 8 && i+j < p.dim; j++ {
			// Map each byte pair to a float in roughly [-1, 1].
			v := int16(binary.BigEndian.Uint16(h[j*2 : j*2+2]))
			vec[i+j] = float32(v) / float32(1<<15)
		}
		counter++
	}
	normalize(vec)
	return vec
}

// normalize scales vec to unit L2 norm in place, matching a real
// provider's normalized output so dense ranking's dot product approximates
// cosine similarity. A zero vector is left as-is.
func normalize(vec Vector) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i, v := range vec {
		vec[i] = v / norm
	}
}

// Dimension implements Provider.
func (p *DeterministicProvider) Dimension() int { return p.dim }

// BatchSize implements Provider.
func (p *DeterministicProvider) BatchSize() int { return p.batch }

// Close implements Provider; DeterministicProvider holds no resources.
func (p *DeterministicProvider) Close() error { return nil }
