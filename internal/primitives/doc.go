// Package primitives provides the serializable description of a chart:
// its states, kinds, tags, default branches, transitions and timers.
//
// Descriptions carry no behavior. Guards and actions appear only as flags
// saying whether one is attached, which is enough for diagrams, snapshot
// compatibility checks and structural validation.
//
// Core invariants:
//   - A description is derived from a validated machine and never edited
//   - The version hash depends only on structure, so equal charts agree
package primitives
