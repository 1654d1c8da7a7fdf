// Package launcher runs an installed package's entry file in a child
// process. The child gets the configuration as one JSON argument, shares the
// parent's standard streams, and its exit status becomes the caller's.
//
// Nothing here sandboxes the entry file. Launching is a handoff.
package launcher
