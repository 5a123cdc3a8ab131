package knowledge

import (
	"github.com/jonathan/search-wizard/internal/types"
)

// Base is the knowledge-base working set of a single generation request.
// It is not safe for concurrent use and must not outlive the request.
type Base struct {
	chunks []types.ContentChunk
	seen   map[types.Kind]map[string]bool
}

// NewBase creates an empty working set
func NewBase() *Base {
	return &Base{
		seen: map[types.Kind]map[string]bool{
			types.KindCompany: {},
			types.KindRole:    {},
		},
	}
}

// Add appends chunks to the working set
func (b *Base) Add(chunks ...types.ContentChunk) {
	b.chunks = append(b.chunks, chunks...)
}

// Len returns the number of chunks held
func (b *Base) Len() int {
	return len(b.chunks)
}

// Chunks returns the chunks in insertion order
func (b *Base) Chunks() []types.ContentChunk {
	return b.chunks
}

// Select matches requested against the working set and returns only the
// chunks not already emitted for that kind. found reports whether any tier
// matched, so a reference whose chunks were all emitted earlier is still
// considered grounded.
func (b *Base) Select(requested string, kind types.Kind) (fresh []types.ContentChunk, tier Tier, found bool) {
	matched, tier := MatchTier(requested, b.chunks, kind)
	if len(matched) == 0 {
		return nil, TierNone, false
	}

	seen := b.seen[kind]
	if seen == nil {
		seen = map[string]bool{}
		b.seen[kind] = seen
	}

	for _, c := range matched {
		if seen[c.ArtifactName] {
			continue
		}
		seen[c.ArtifactName] = true
		fresh = append(fresh, c)
	}
	return fresh, tier, true
}
