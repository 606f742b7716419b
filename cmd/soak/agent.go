package main

import (
	"github.com/argus-labs/entitycore/pkg/capability"
	"github.com/argus-labs/entitycore/pkg/handle"
	"github.com/rotisserie/eris"
)

var errNotInitialized = eris.New("agent not initialized")

// Capabilities the agents expose through their containers.
type (
	Mover interface {
		Position() float64
	}
	Ager interface {
		Age() int
	}
)

// agent is the payload stored by the manager. Its behavior lives in fragments built when the
// agent is initialized; the container is heap allocated so the payload can be relocated freely.
type agent struct {
	ID        uint64
	Speed     float64
	MaxAge    int
	parts     *capability.Container
	initErr   error // Reported by the first step
	activated bool
}

func (a *agent) Initialize(handle.Handle) {
	a.parts = capability.NewContainer()
	a.initErr = addFragments(a.parts, &motion{speed: a.Speed}, &aging{})
}

func (a *agent) Deinitialize(handle.Handle) {
	a.parts.Clear()
	a.parts = nil
	a.initErr = nil
}

func addFragments(c *capability.Container, fragments ...capability.Fragment) error {
	for _, f := range fragments {
		if err := c.Add(f); err != nil {
			return eris.Wrapf(err, "failed to add %T", f)
		}
	}
	return nil
}

func (a *agent) OnActivated(handle.Handle)   { a.activated = true }
func (a *agent) OnDeactivated(handle.Handle) { a.activated = false }

// step ticks the agent's fragments. Inactive agents are frozen.
func (a *agent) step() error {
	if a.parts == nil {
		return eris.Wrapf(errNotInitialized, "agent %d", a.ID)
	}
	if a.initErr != nil {
		return eris.Wrapf(a.initErr, "agent %d", a.ID)
	}
	if !a.activated {
		return nil
	}
	return a.parts.Update()
}

// expired reports whether the agent outlived MaxAge.
func (a *agent) expired() bool {
	if a.parts == nil {
		return false
	}
	ager, ok := capability.Get[Ager](a.parts)
	return ok && ager.Age() >= a.MaxAge
}

type motion struct {
	capability.Base
	position float64
	speed    float64
}

func (m *motion) Capabilities() []capability.Tag {
	return []capability.Tag{capability.TagOf[Mover]()}
}

func (m *motion) Update() error {
	m.position += m.speed
	return nil
}

func (m *motion) Position() float64 { return m.position }

type aging struct {
	capability.Base
	age int
}

func (g *aging) Capabilities() []capability.Tag {
	return []capability.Tag{capability.TagOf[Ager]()}
}

func (g *aging) Update() error {
	g.age++
	return nil
}

func (g *aging) Age() int { return g.age }
