package docstore

import (
	"fmt"

	"github.com/viant/vec/search"
)

// vectorRanker scores documents by cosine similarity against a query vector.
type vectorRanker struct {
	vq        *VectorQuery
	query     search.Float32s
	magnitude float32
}

func newVectorRanker(vq *VectorQuery) (*vectorRanker, error) {
	if vq.Field == "" {
		return nil, fmt.Errorf("%w: vector query requires a field", ErrInvalidArgument)
	}
	if len(vq.Query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrInvalidArgument)
	}
	query := search.Float32s(vq.Query)
	magnitude := query.Magnitude()
	if magnitude == 0 {
		return nil, fmt.Errorf("%w: zero-magnitude query vector", ErrInvalidArgument)
	}
	return &vectorRanker{vq: vq, query: query, magnitude: magnitude}, nil
}

// score computes the similarity of one document. The second return value is
// false when the document lacks the vector field or fails the threshold.
func (r *vectorRanker) score(doc storedDoc) (float64, bool, error) {
	vec, ok := float32Slice(doc.fields[r.vq.Field])
	if !ok {
		return 0, false, nil
	}
	if len(vec) != len(r.vq.Query) {
		return 0, false, fmt.Errorf("%w: vector dimension mismatch for document %q: %d vs %d",
			ErrInvalidArgument, doc.id, len(vec), len(r.vq.Query))
	}
	docMagnitude := search.Float32s(vec).Magnitude()
	if docMagnitude == 0 {
		return 0, false, fmt.Errorf("%w: zero-magnitude vector on document %q", ErrInvalidArgument, doc.id)
	}

	distance := r.query.CosineDistanceWithMagnitude(vec, r.magnitude, docMagnitude)
	score := 1 - float64(distance)

	if r.vq.MinScore != nil && score <= *r.vq.MinScore {
		return 0, false, nil
	}
	return score, true, nil
}

// float32Slice converts a decoded JSON array into a float32 slice.
func float32Slice(v any) ([]float32, bool) {
	values, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(values))
	for i, raw := range values {
		f, ok := raw.(float64)
		if !ok {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}
