// Package serialize implements the deterministic, version-tolerant binary
// encodings CaseTrack uses for vectors stored in the embeddings column
// family: dense vectors as raw little-endian float32 byte slices (for
// zero-copy reads) and sparse vectors as parallel sorted (index, weight)
// arrays.
package serialize

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// DenseToBytes packs a dense float32 vector as little-endian bytes.
func DenseToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToDense unpacks a little-endian float32 byte slice.
func BytesToDense(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("serialize: dense vector byte length %d not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// SparseVector is a vocabulary-indexed weight vector, kept sorted by index.
type SparseVector struct {
	Indices []uint32
	Weights []float32
}

// Sort orders the sparse vector entries by index ascending, as required
// before serialization.
func (s *SparseVector) Sort() {
	idx := make([]int, len(s.Indices))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return s.Indices[idx[i]] < s.Indices[idx[j]] })
	indices := make([]uint32, len(s.Indices))
	weights := make([]float32, len(s.Weights))
	for pos, orig := range idx {
		indices[pos] = s.Indices[orig]
		weights[pos] = s.Weights[orig]
	}
	s.Indices = indices
	s.Weights = weights
}

// SparseToBytes encodes a sparse vector as (len uint32, indices[len] uint32 LE, weights[len] float32 LE).
func SparseToBytes(s SparseVector) []byte {
	n := len(s.Indices)
	buf := make([]byte, 4+4*n+4*n)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	off := 4
	for _, ix := range s.Indices {
		binary.LittleEndian.PutUint32(buf[off:], ix)
		off += 4
	}
	for _, w := range s.Weights {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(w))
		off += 4
	}
	return buf
}

// BytesToSparse decodes the format produced by SparseToBytes.
func BytesToSparse(b []byte) (SparseVector, error) {
	if len(b) < 4 {
		return SparseVector{}, fmt.Errorf("serialize: sparse vector buffer too short")
	}
	n := int(binary.LittleEndian.Uint32(b[0:4]))
	want := 4 + 8*n
	if len(b) != want {
		return SparseVector{}, fmt.Errorf("serialize: sparse vector buffer length %d, want %d", len(b), want)
	}
	out := SparseVector{Indices: make([]uint32, n), Weights: make([]float32, n)}
	off := 4
	for i := 0; i < n; i++ {
		out.Indices[i] = binary.LittleEndian.Uint32(b[off:])
		off += 4
	}
	for i := 0; i < n; i++ {
		out.Weights[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		off += 4
	}
	return out, nil
}

// TokenMatrixToBytes packs a per-token late-interaction matrix (rows of
// equal-length float32 vectors) as (rows uint32, cols uint32, raw LE floats).
func TokenMatrixToBytes(m [][]float32) []byte {
	rows := len(m)
	cols := 0
	if rows > 0 {
		cols = len(m[0])
	}
	buf := make([]byte, 8+4*rows*cols)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rows))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(cols))
	off := 8
	for _, row := range m {
		for _, f := range row {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

// BytesToTokenMatrix decodes the format produced by TokenMatrixToBytes.
func BytesToTokenMatrix(b []byte) ([][]float32, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("serialize: token matrix buffer too short")
	}
	rows := int(binary.LittleEndian.Uint32(b[0:4]))
	cols := int(binary.LittleEndian.Uint32(b[4:8]))
	want := 8 + 4*rows*cols
	if len(b) != want {
		return nil, fmt.Errorf("serialize: token matrix buffer length %d, want %d", len(b), want)
	}
	out := make([][]float32, rows)
	off := 8
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		for j := 0; j < cols; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
			off += 4
		}
		out[i] = row
	}
	return out, nil
}

// CosineDense computes cosine similarity between two dense vectors of
// equal length. Returns 0 if either vector has zero magnitude.
func CosineDense(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DotSparse computes the dot product of two sparse vectors, each assumed
// sorted ascending by index (the invariant SparseVector.Sort establishes).
func DotSparse(a, b SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += float64(a.Weights[i]) * float64(b.Weights[j])
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}
