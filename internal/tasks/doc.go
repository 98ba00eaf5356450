// package tasks assembles the merged playlist view served to the web layer.
//
// The core abstraction is [LibraryEngine], which combines the remote aggregated
// playlist collection with the locally persisted overlays (visibility flags and
// target mappings) into one deterministic, locale-sorted sequence per request.
package tasks
