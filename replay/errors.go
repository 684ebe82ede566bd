package replay

import (
	"errors"
	"fmt"
)

// Failure kinds. Every fallible operation in this module returns an error
// that matches exactly one of these with errors.Is.
var (
	// ErrMalformedRecording reports a length prefix that overruns the buffer.
	ErrMalformedRecording = errors.New("replay: malformed recording")
	// ErrOutOfRange reports a frame lookup that is negative or not yet indexed.
	ErrOutOfRange = errors.New("replay: frame out of range")
	// ErrDecode reports frame bytes that do not parse as a command list.
	ErrDecode = errors.New("replay: decode error")
	// ErrLoad reports a byte source failure.
	ErrLoad = errors.New("replay: load error")
)

// MalformedError describes where indexing stopped.
type MalformedError struct {
	Frame  int // index of the frame being read
	Offset int // byte offset of its length prefix
	Size   int // declared payload size, -1 if the prefix itself was truncated
	Length int // total buffer length
}

func (e *MalformedError) Error() string {
	if e.Size < 0 {
		return fmt.Sprintf("%v: frame %d: truncated length prefix at offset %d (buffer %d bytes)",
			ErrMalformedRecording, e.Frame, e.Offset, e.Length)
	}
	return fmt.Sprintf("%v: frame %d: size %d at offset %d overruns buffer of %d bytes",
		ErrMalformedRecording, e.Frame, e.Size, e.Offset, e.Length)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedRecording }

// RangeError is returned for frame lookups outside the indexed range.
type RangeError struct {
	Frame int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: frame %d (indexed %d)", ErrOutOfRange, e.Frame, e.Count)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// DecodeError locates a command list parse failure inside one frame payload.
type DecodeError struct {
	Frame  int // -1 when the payload was decoded without a frame number
	Offset int // byte offset inside the payload
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("%v: offset %d: %v", ErrDecode, e.Offset, e.Err)
	}
	return fmt.Sprintf("%v: frame %d offset %d: %v", ErrDecode, e.Frame, e.Offset, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// LoadError wraps a byte source failure for the given location.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrLoad, e.URL, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }
