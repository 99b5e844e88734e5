// Package similarity scores catalog products against a query image.
//
// The current scorer is a placeholder: it assigns pseudo-random scores so
// the surrounding flow (query image in, ranked products out) is in place.
// A real feature-vector comparison can replace score() without touching
// callers.
package similarity

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
)

// Match is one scored product. Score is in [0.5, 1.0], higher is closer.
type Match struct {
	Product domain.Product
	Score   float64
}

type Searcher struct {
	rng *rand.Rand
}

func NewSearcher(seed int64) *Searcher {
	return &Searcher{rng: rand.New(rand.NewSource(seed))}
}

// Search ranks candidates against the query image, best first.
func (s *Searcher) Search(ctx context.Context, queryImage string, candidates []domain.Product) ([]Match, error) {
	if queryImage == "" {
		return nil, domain.ValidationErrorf("similarity search needs a query image")
	}
	matches := make([]Match, 0, len(candidates))
	for _, p := range candidates {
		matches = append(matches, Match{Product: p, Score: s.score()})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	zap.L().Debug("similarity search scored", zap.Int("candidates", len(candidates)))
	return matches, nil
}

func (s *Searcher) score() float64 {
	return 0.5 + s.rng.Float64()*0.5
}
