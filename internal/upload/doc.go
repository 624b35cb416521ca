// Package upload drives the three phase asset upload protocol.
//
//  1. Reserve POSTs an asset placeholder under a parent resource and reads
//     back the upload operations: pre-signed destinations with a method,
//     headers and a byte range.
//  2. Transfer sends every range of the source to its destination, in
//     parallel, with the operation's headers attached verbatim.
//  3. Commit PATCHes the asset with uploaded=true and the checksum the
//     reservation supplied, once every part has succeeded.
//
// A Session moves Reserved -> Transferring -> Committed; a failed reserve,
// part or commit leaves it Failed. The pipeline never deletes remote data on
// its own: Discard is the caller's cleanup.
package upload
