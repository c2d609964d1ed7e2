// Package tradelog is the durable local journal of emitted trades:
// segmented append-only files with CRC-checked, protobuf-encoded
// records. It records what the venue did; it is not a recovery log for
// book state.
package tradelog
