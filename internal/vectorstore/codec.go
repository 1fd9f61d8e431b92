package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/codecontext/codecontext-core/internal/bm25f"
	"github.com/codecontext/codecontext-core/internal/embedding"
)

// encodeDense packs a dense vector as a flat little-endian float32 blob.
func encodeDense(v embedding.Vector) ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

func decodeDense(buf []byte) (embedding.Vector, error) {
	if len(buf)%4 != 0 {
		return nil, nil
	}
	v := make(embedding.Vector, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

// encodeSparse serializes a sparse vector as a JSON object keyed by the
// decimal string of each uint64 hash (JSON object keys must be strings).
func encodeSparse(v bm25f.SparseVector) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	strKeyed := make(map[string]float64, len(v))
	for k, val := range v {
		strKeyed[strconv.FormatUint(k, 10)] = val
	}
	return json.Marshal(strKeyed)
}

func decodeSparse(buf []byte) (bm25f.SparseVector, error) {
	if len(buf) == 0 {
		return bm25f.SparseVector{}, nil
	}
	var strKeyed map[string]float64
	if err := json.Unmarshal(buf, &strKeyed); err != nil {
		return nil, err
	}
	out := make(bm25f.SparseVector, len(strKeyed))
	for k, val := range strKeyed {
		idx, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, err
		}
		out[idx] = val
	}
	return out, nil
}
