// Package config loads, validates and saves pump scenarios in YAML format.
//
// A Scenario holds the base stimulus the environment supplies every cycle
// and a list of patches that change individual signals from a given tick
// onward. Validate enforces the 0..255 bound on every integer signal, both
// in the base stimulus and after each scheduled patch.
package config
