// Package cache provides a keyed time-to-live cache for fleetpulse.
//
// This package is internal to fleetpulse and backs the preview URL cache.
// Entries record the wall-clock time they were fetched; staleness is evaluated
// lazily on read against a maximum age, with no background eviction. A lookup
// distinguishes three outcomes: absent, present and fresh, present but stale.
//
// The cache is unbounded by default. [WithMaxEntries] bounds it with a
// least-recently-used eviction policy for large fleets.
package cache
