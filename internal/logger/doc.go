// Package logger wraps zap for the pump simulator: one global console
// logger on stderr whose level follows the scenario or --log-level, and
// context helpers so a run, a chart tracer or a mine pump product logs
// under its own name and fields.
package logger
