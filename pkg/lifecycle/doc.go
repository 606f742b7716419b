// Package lifecycle defines the states a pooled object moves through and the events delivered
// to collaborators along the way.
//
// States only move forward:
//
//	New -> Initializing -> Initialized -> SimulationStarting -> SimulationStarted
//
// and any live state may move to QueuedForDestruction, which is followed by Destroyed. Activation
// is orthogonal to State and kept in Flags: FlagActive is what the client asked for and
// FlagActivated records that EventActivated has been delivered without a matching
// EventDeactivated.
//
// The package has no scheduling of its own. The world package drives transitions in its frame
// phases and emits events through Hooks.
package lifecycle
