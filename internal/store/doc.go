// Package store collects per-route render outcomes during an export.
//
// Routes render concurrently and finish in any order, so outcomes are stored
// by the route's position in the export rather than by arrival. Reading the
// store back yields outcomes in export order regardless of scheduling.
//
// The main components are:
//
//   - [Store]: Interface defining the collection operations
//   - [MemoryStore]: In-memory, fixed-size implementation of Store
//   - [Outcome]: Storage representation of one route's result
//
// Users of the prerender library should not need to interact with this
// package directly.
package store
