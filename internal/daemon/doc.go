// Package daemon ties the workflow manager to process-level concerns:
// single-instance locking and lifecycle control.
package daemon
