package replay

import (
	"encoding/binary"
	"iter"
	"time"
)

// PrefixSize is the length of the little-endian uint32 in front of every frame.
const PrefixSize = 4

// DefaultChunkBudget bounds the wall-clock time a single Step may spend.
const DefaultChunkBudget = 200 * time.Millisecond

// FrameDescriptor locates one frame inside the raw recording. Offset points
// at the length prefix; Size counts only the payload after it.
type FrameDescriptor struct {
	Offset int
	Size   int
}

// End returns the offset one past the frame's payload.
func (d FrameDescriptor) End() int { return d.Offset + PrefixSize + d.Size }

// Chunk reports the outcome of one bounded indexing step.
type Chunk struct {
	Progress float64 // cursor / buffer length, 1 for an empty buffer
	Frames   int     // descriptors indexed so far
	Done     bool
}

// Indexer incrementally scans a recording into frame descriptors. Each Step
// indexes frames until its time budget runs out, then returns so the caller
// can yield before resuming from the saved cursor.
//
// An Indexer is not safe for concurrent use.
type Indexer struct {
	data   []byte
	cursor int
	frames []FrameDescriptor
	done   bool
	err    error
	now    func() time.Time
}

// NewIndexer returns an indexer positioned at the start of data.
func NewIndexer(data []byte) *Indexer {
	return &Indexer{data: data, now: time.Now}
}

// SetClock replaces the time source used to enforce chunk budgets.
func (ix *Indexer) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ix.now = now
}

// Step indexes frames until budget elapses or the buffer ends. At least one
// frame is indexed per call when any remain. After completion Step does no
// work and keeps returning the final chunk; after a failure it keeps
// returning the same error.
func (ix *Indexer) Step(budget time.Duration) (Chunk, error) {
	if ix.err != nil {
		return ix.chunk(), ix.err
	}
	if ix.done {
		return ix.chunk(), nil
	}

	start := ix.now()
	for ix.cursor < len(ix.data) {
		if err := ix.next(); err != nil {
			ix.err = err
			return ix.chunk(), err
		}
		if ix.now().Sub(start) > budget {
			break
		}
	}
	if ix.cursor >= len(ix.data) {
		ix.done = true
	}
	return ix.chunk(), nil
}

func (ix *Indexer) next() error {
	off := ix.cursor
	if off+PrefixSize > len(ix.data) {
		return &MalformedError{Frame: len(ix.frames), Offset: off, Size: -1, Length: len(ix.data)}
	}
	size := int(binary.LittleEndian.Uint32(ix.data[off : off+PrefixSize]))
	d := FrameDescriptor{Offset: off, Size: size}
	// size comes from 32 bits, so compare against what remains to avoid overflow on 32-bit ints.
	if size < 0 || size > len(ix.data)-off-PrefixSize {
		return &MalformedError{Frame: len(ix.frames), Offset: off, Size: size, Length: len(ix.data)}
	}
	ix.frames = append(ix.frames, d)
	ix.cursor = d.End()
	return nil
}

// Chunks returns the remaining indexing work as a lazy sequence, one element
// per budgeted step. The sequence ends after the completing chunk or after
// the first error. It is not restartable: ranging over it again once
// indexing has finished yields nothing.
func (ix *Indexer) Chunks(budget time.Duration) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for !ix.done && ix.err == nil {
			c, err := ix.Step(budget)
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// Frames returns the descriptors indexed so far.
func (ix *Indexer) Frames() []FrameDescriptor { return ix.frames }

// Progress returns the fraction of the buffer consumed.
func (ix *Indexer) Progress() float64 {
	if len(ix.data) == 0 {
		return 1
	}
	return float64(ix.cursor) / float64(len(ix.data))
}

// Done reports whether the whole buffer has been indexed.
func (ix *Indexer) Done() bool { return ix.done }

// Err returns the error that stopped indexing, if any.
func (ix *Indexer) Err() error { return ix.err }

func (ix *Indexer) chunk() Chunk {
	return Chunk{Progress: ix.Progress(), Frames: len(ix.frames), Done: ix.done}
}
