// Package services defines the shared error taxonomy and context plumbing
// used across pipeline transitions. Every transition failure is wrapped in a
// *services.Error carrying a stable machine-readable code so operators and
// the admin tooling can act on the code rather than the message text.
package services
