// Package replay decodes scene recordings for playback.
//
// A recording is a flat stream of frames:
//   - frame: [sizeLE:uint32][size bytes payload]
//   - payload: zero or more commands, each [varint kind][varint len][body]
//
// Indexer scans the stream into FrameDescriptors in time-bounded chunks so a
// host event loop is never blocked for long on multi-megabyte recordings.
// Store owns the bytes and the index, skips re-indexing identical payloads by
// content hash, and gives random access to frame payloads. DecodeFrame turns
// a payload into Commands; only KindSetFramesPerSecond means anything to
// playback, everything else is passed through to the scene untouched.
//
// Writer produces recordings in the same format.
package replay
