// Package ingest discovers deposited package files in the hot folder and
// turns them into catalog records for the pipeline to pick up.
package ingest
