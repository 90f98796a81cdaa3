package classification

import (
	"math/rand"
	"time"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// Winner and loser confidence ranges for synthetic predictions. The winner
// always scores above every loser, so the ranking invariant holds by
// construction.
const (
	syntheticWinnerMin = 0.70
	syntheticWinnerMax = 0.95
	syntheticLoserMax  = 0.15
)

// syntheticGenerator produces plausible-shaped random predictions when no
// real model is available. It owns its randomness source, so concurrent
// backends never share mutable state.
type syntheticGenerator struct {
	rng *rand.Rand
}

func newSyntheticGenerator() *syntheticGenerator {
	return &syntheticGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// predictions picks one stage uniformly as the winner with a confidence in
// the high sub-range and scores every other stage in the low sub-range,
// independently per call.
func (g *syntheticGenerator) predictions(stages []taxonomy.RipenessStage) map[string]float64 {
	winner := g.rng.Intn(len(stages))
	scores := make(map[string]float64, len(stages))
	for i, stage := range stages {
		if i == winner {
			scores[stage.CanonicalLabel] = syntheticWinnerMin + g.rng.Float64()*(syntheticWinnerMax-syntheticWinnerMin)
		} else {
			scores[stage.CanonicalLabel] = g.rng.Float64() * syntheticLoserMax
		}
	}
	return scores
}
