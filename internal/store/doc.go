// Package store holds the published fleet snapshot and fans it out to subscribers.
//
// This package is internal to fleetpulse. A [FleetState] is published whole:
// the store swaps the current state in one step, so readers see either the
// previous snapshot or the new one, never a half-built map. Published states
// are treated as immutable by every reader.
//
// The main components are:
//
//   - [Store]: Interface defining publication and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [FleetState]: The published aggregate of one poll cycle
//
// Subscribers receive states via channels with non-blocking sends (slow
// subscribers miss intermediate states rather than block the poller).
package store
