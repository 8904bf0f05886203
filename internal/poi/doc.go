// Package poi turns raw point-of-interest markers into the records the
// pipeline persists: slide timecodes published on the package and tag
// markers stored as point-of-interest rows. Markers come either from the
// package metadata or from the deprecated synchro.xml descriptor.
package poi
