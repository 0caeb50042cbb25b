// Package organize sorts the files already sitting in a folder in one pass.
//
// It scans the top level of a folder, skips hidden and non-regular entries,
// and runs every remaining file through the same classify, resolve, move and
// audit pipeline the watcher uses. A failure on one file is recorded in the
// Report and the batch continues. Dry runs plan destinations without moving
// anything.
package organize
