// Package logging assembles the structured slog loggers used across
// packflow. It owns console/JSON handler construction, centralizes level and
// output plumbing, and exposes context-aware helpers so transition code
// automatically tags log lines with package ids, transition names, and
// correlation ids. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
