// Package josh presents arbitrary subsets and rearrangements of a monorepo
// as independent, fully-functional git histories.
//
// Given a source history and a filter expression, it lazily materializes a
// derived history whose commits contain only the content selected (and
// optionally reshaped) by the filter, preserving commit graph topology,
// parentage, authorship, and identity stability across repeated
// application.
//
// See [Parse] and [Filter] for the filter language, [FilterTree] and
// [FilterCommit] for the forward transform, and [UnapplyTree] and
// [UnapplyCommit] for the inverse.
package josh
