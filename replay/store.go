package replay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// LoadStatus tells a caller whether a load replaced the recording.
type LoadStatus int

const (
	// Failed means the load was rejected and the current recording was kept.
	Failed LoadStatus = iota
	// Replaced means the bytes differed from the current recording and were indexed.
	Replaced
	// Unchanged means the bytes hash to the recording already loaded (or being loaded).
	Unchanged
)

func (s LoadStatus) String() string {
	switch s {
	case Failed:
		return "failed"
	case Replaced:
		return "replaced"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Store owns the raw recording and its frame index. Identical payloads are
// recognised by their SHA-256 and never re-indexed.
//
// A new recording is indexed on the side and swapped in by Commit, so a
// malformed payload never disturbs the recording already loaded.
type Store struct {
	data    []byte
	frames  []FrameDescriptor
	hash    string
	version uint64

	pending     *Indexer
	pendingHash string
	clock       func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetClock sets the time source handed to indexers started by Begin.
func (s *Store) SetClock(now func() time.Time) { s.clock = now }

// ContentHash returns the dedup key for data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Begin starts loading data. It returns Unchanged and a nil indexer when
// data matches the committed recording or the one currently being indexed.
// Otherwise any pending load is abandoned and the returned indexer must be
// driven to completion and passed to Commit. The store indexes its own copy
// of data, so callers may reuse the buffer.
func (s *Store) Begin(data []byte) (*Indexer, LoadStatus) {
	h := ContentHash(data)
	if s.pending != nil && h == s.pendingHash {
		return nil, Unchanged
	}
	if s.pending == nil && s.hash != "" && h == s.hash {
		return nil, Unchanged
	}
	ix := NewIndexer(bytes.Clone(data))
	if s.clock != nil {
		ix.SetClock(s.clock)
	}
	s.pending = ix
	s.pendingHash = h
	return ix, Replaced
}

// Commit installs a fully indexed recording. It fails if ix is not the
// indexer returned by the latest Begin, or if indexing failed or is unfinished.
// A failed indexer is dropped so the same bytes may be retried.
func (s *Store) Commit(ix *Indexer) error {
	if ix == nil || ix != s.pending {
		return errors.New("replay: commit of a superseded load")
	}
	if err := ix.Err(); err != nil {
		s.Abandon(ix)
		return err
	}
	if !ix.Done() {
		return errors.New("replay: commit before indexing finished")
	}
	s.data = ix.data
	s.frames = ix.frames
	s.hash = s.pendingHash
	s.version++
	s.pending = nil
	s.pendingHash = ""
	return nil
}

// Abandon drops ix if it is the pending load.
func (s *Store) Abandon(ix *Indexer) {
	if ix != nil && ix == s.pending {
		s.pending = nil
		s.pendingHash = ""
	}
}

// Load indexes data synchronously, calling progress after every chunk.
func (s *Store) Load(data []byte, progress func(float64)) (LoadStatus, error) {
	ix, status := s.Begin(data)
	if status == Unchanged {
		return Unchanged, nil
	}
	for c, err := range ix.Chunks(DefaultChunkBudget) {
		if err != nil {
			s.Abandon(ix)
			return Failed, err
		}
		if progress != nil {
			progress(c.Progress)
		}
	}
	if err := s.Commit(ix); err != nil {
		return Failed, err
	}
	return Replaced, nil
}

// Loaded reports whether a recording has been committed.
func (s *Store) Loaded() bool { return s.hash != "" }

// Loading reports whether a load is in progress.
func (s *Store) Loading() bool { return s.pending != nil }

// Hash returns the content hash of the committed recording.
func (s *Store) Hash() string { return s.hash }

// Version increases by one with every committed distinct recording.
func (s *Store) Version() uint64 { return s.version }

// Len returns the size of the committed recording in bytes.
func (s *Store) Len() int { return len(s.data) }

// FrameCount returns the number of indexed frames.
func (s *Store) FrameCount() int { return len(s.frames) }

// Descriptor returns the index entry for frame n.
func (s *Store) Descriptor(n int) (FrameDescriptor, error) {
	if n < 0 || n >= len(s.frames) {
		return FrameDescriptor{}, &RangeError{Frame: n, Count: len(s.frames)}
	}
	return s.frames[n], nil
}

// FrameBytes returns frame n's payload without its length prefix. The slice
// aliases the recording and must not be modified.
func (s *Store) FrameBytes(n int) ([]byte, error) {
	d, err := s.Descriptor(n)
	if err != nil {
		return nil, err
	}
	start := d.Offset + PrefixSize
	return s.data[start:d.End():d.End()], nil
}

// Frame decodes frame n.
func (s *Store) Frame(n int) ([]Command, error) {
	b, err := s.FrameBytes(n)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(n, b)
}

// Reset discards the recording and any pending load.
func (s *Store) Reset() {
	s.data = nil
	s.frames = nil
	s.hash = ""
	s.pending = nil
	s.pendingHash = ""
}
