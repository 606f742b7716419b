package testutils

import "github.com/argus-labs/entitycore/pkg/assert"

const genMaxDepth = 32

// Gen enumerates every sequence of bounded choices a test body makes, one sequence per loop
// iteration:
//
//	g := testutils.NewGen()
//	for !g.Done() {
//		n := g.Intn(3) // 0..3
//		...
//	}
//
// Each call to a choice method records (value, bound). Done advances the rightmost choice that
// is still below its bound and drops everything after it, so the next pass re-records those
// choices from zero. See https://matklad.github.io/2021/11/07/generate-all-the-things.html.
type Gen struct {
	started bool
	choices [genMaxDepth]genChoice
	pos     int // next choice to replay or record in this pass
	depth   int // number of choices recorded so far
}

type genChoice struct {
	value uint32
	bound uint32
}

// NewGen creates a new exhaustive generator.
func NewGen() *Gen {
	return &Gen{}
}

// Done returns true once every combination has been produced.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := g.depth - 1; i >= 0; i-- {
		if g.choices[i].value < g.choices[i].bound {
			g.choices[i].value++
			g.depth = i + 1
			g.pos = 0
			return false
		}
	}
	return true
}

func (g *Gen) next(bound uint32) uint32 {
	assert.That(g.pos < genMaxDepth, "exhaustigen: exceeded maximum depth of %d", genMaxDepth)
	if g.pos == g.depth {
		g.choices[g.pos] = genChoice{}
		g.depth++
	}
	c := &g.choices[g.pos]
	c.bound = bound
	g.pos++
	return c.value
}

// Intn returns an int in range [0, bound] (inclusive).
func (g *Gen) Intn(bound int) int {
	return int(g.next(uint32(bound))) //nolint:gosec // bound is expected to be small in tests
}

// Bool returns an exhaustive boolean value.
func (g *Gen) Bool() bool {
	return g.Intn(1) == 1
}
