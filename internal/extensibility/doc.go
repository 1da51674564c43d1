// Package extensibility holds the pluggable pieces around the charts:
// tracers observing state changes, watch expressions over published
// signals and sources feeding stimulus patches into a running driver.
package extensibility
