package artifact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/search-wizard/internal/chunking"
	"github.com/jonathan/search-wizard/internal/knowledge"
	"github.com/jonathan/search-wizard/internal/types"
)

// Chunks resolves each artifact in order and splits oversized content.
// Artifacts without a valid kind take defaultKind.
func (r *Resolver) Chunks(ctx context.Context, artifacts []types.Artifact, defaultKind types.Kind, opts chunking.Options) ([]types.ContentChunk, error) {
	var out []types.ContentChunk
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kind := a.Kind
		if !kind.Valid() {
			kind = defaultKind
		}

		text := r.Resolve(ctx, a)
		chunks, err := chunking.Named(a.Name, kind, text, opts)
		if err != nil {
			return nil, fmt.Errorf("chunking %q: %w", a.Name, err)
		}
		if len(chunks) > 1 {
			r.log.Debug("artifact split", zap.String("artifact", a.Name), zap.Int("parts", len(chunks)))
		}
		out = append(out, chunks...)
	}
	return out, nil
}

// BuildBase resolves company and role artifacts into one request-scoped
// knowledge base.
func (r *Resolver) BuildBase(ctx context.Context, company, role []types.Artifact, opts chunking.Options) (*knowledge.Base, error) {
	base := knowledge.NewBase()

	companyChunks, err := r.Chunks(ctx, company, types.KindCompany, opts)
	if err != nil {
		return nil, err
	}
	base.Add(companyChunks...)

	roleChunks, err := r.Chunks(ctx, role, types.KindRole, opts)
	if err != nil {
		return nil, err
	}
	base.Add(roleChunks...)

	return base, nil
}

// Ground selects the chunks for each requested artifact name from base,
// skipping names already emitted for kind. Names that match nothing are
// logged and skipped.
func (r *Resolver) Ground(base *knowledge.Base, names []string, kind types.Kind) []types.ContentChunk {
	var out []types.ContentChunk
	for _, name := range names {
		fresh, tier, found := base.Select(name, kind)
		if !found {
			r.log.Warn("artifact not grounded in knowledge base",
				zap.String("artifact", name), zap.String("kind", string(kind)))
			continue
		}
		if tier != knowledge.TierExact {
			r.log.Debug("artifact matched loosely", zap.String("artifact", name), zap.Stringer("tier", tier))
		}
		out = append(out, fresh...)
	}
	return out
}
