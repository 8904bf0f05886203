// Package pipeline is the transition engine. A Definition declares a
// package kind's ordered transition stack and authorized state edges; a
// Runner executes one package's remaining transitions strictly in order,
// persisting the resume point before every side-effecting call so a
// crashed run re-enters exactly where it stopped.
package pipeline
