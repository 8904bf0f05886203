// Package workflow runs the daemon loop: it resumes interrupted packages
// on startup, scans the hot folder on an interval, and drives each
// package through its pipeline with bounded concurrency.
package workflow
