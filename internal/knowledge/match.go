// Package knowledge matches artifact references against the request's
// knowledge base of resolved content chunks.
package knowledge

import (
	"strings"

	"github.com/jonathan/search-wizard/internal/types"
)

// Tier records which matching rule produced a result
type Tier int

const (
	// TierNone means nothing matched
	TierNone Tier = iota
	// TierExact is a case-sensitive name match
	TierExact
	// TierPrefix matches chunk names that start with the requested name,
	// which covers the "<name> (part i/N)" convention
	TierPrefix
	// TierSubstring is a case-insensitive containment match
	TierSubstring
)

// String returns the tier name used in logs
func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}

// Match returns every chunk of the given kind belonging to requested.
// Tiers are tried in order and the first non-empty one wins; the chunks keep
// their original relative order.
func Match(requested string, chunks []types.ContentChunk, kind types.Kind) []types.ContentChunk {
	matched, _ := MatchTier(requested, chunks, kind)
	return matched
}

// MatchTier is Match that also reports the winning tier
func MatchTier(requested string, chunks []types.ContentChunk, kind types.Kind) ([]types.ContentChunk, Tier) {
	if requested == "" {
		return nil, TierNone
	}

	if m := filter(chunks, kind, func(name string) bool { return name == requested }); len(m) > 0 {
		return m, TierExact
	}

	if m := filter(chunks, kind, func(name string) bool { return strings.HasPrefix(name, requested) }); len(m) > 0 {
		return m, TierPrefix
	}

	lower := strings.ToLower(requested)
	if m := filter(chunks, kind, func(name string) bool { return strings.Contains(strings.ToLower(name), lower) }); len(m) > 0 {
		return m, TierSubstring
	}

	return nil, TierNone
}

func filter(chunks []types.ContentChunk, kind types.Kind, keep func(string) bool) []types.ContentChunk {
	var out []types.ContentChunk
	for _, c := range chunks {
		if c.Kind == kind && keep(c.ArtifactName) {
			out = append(out, c)
		}
	}
	return out
}
