// Package pack implements the transition handlers for every package kind
// and assembles them into pipeline definitions. A plain video package
// walks copy, defragment, thumbnail, probe, upload, synchronize and
// cleanup; archive packages additionally extract, validate and save
// points of interest. The merge protocol at the tail of every pipeline
// folds packages uploaded under the same name into one logical media.
package pack
