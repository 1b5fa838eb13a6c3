package negotiation

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// idGenerator produces message and offer IDs. Seeded runs draw from a
// deterministic sequence so identical specs replay identical event payloads;
// unseeded runs use random UUIDs.
type idGenerator struct {
	rng *rand.Rand
}

func newIDGenerator(seed *int64) *idGenerator {
	if seed == nil {
		return &idGenerator{}
	}

	return &idGenerator{rng: rand.New(rand.NewSource(*seed))}
}

func (g *idGenerator) next(prefix string) string {
	if g.rng == nil {
		return prefix + "-" + uuid.New().String()
	}

	return fmt.Sprintf("%s-%016x", prefix, g.rng.Uint64())
}
