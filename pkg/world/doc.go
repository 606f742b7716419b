// Package world provides Manager, the owner of a population of lifecycle-bearing objects.
//
// A Manager stores its objects in a handle.Pool backed by an arena and drives them through the
// lifecycle in explicit phases. A frame is:
//
//  1. ProcessNew: objects created since the last frame are initialized and, if requested,
//     activated.
//  2. ProcessSimulationStart: while simulating, active initialized objects start simulating.
//     This happens at most once per object.
//  3. ForEach or ParallelForEach: per-object work. Objects queued for destruction are skipped.
//  4. ProcessDestruction: queued objects are deactivated, deinitialized and removed.
//
// Update runs the four phases in order. Within a phase objects are processed in creation order and
// collaborator hooks run synchronously.
//
// Destroy never removes an object immediately, so iterators and handles used earlier in the
// frame never observe a half-destroyed object.
package world
