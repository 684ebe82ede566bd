package replay

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"
	"os"
)

// Writer streams frames into a recording.
//
// Usage:
//
//	w, _ := replay.Create("out.rec")
//	defer w.Close()
//	_ = w.WriteFrame(replay.SetFramesPerSecond(50), cmd)
//
// Frames are written incrementally; the writer does not retain them in memory.
type Writer struct {
	bw     *bufio.Writer
	out    io.Writer
	crc32  hash.Hash32
	frames int
	size   int64
	closed bool
	file   *os.File // set by Create
}

// NewWriter returns a Writer emitting frames to out.
func NewWriter(out io.Writer) *Writer {
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(out)
	return &Writer{
		bw:    bw,
		out:   io.MultiWriter(bw, crc),
		crc32: crc,
	}
}

// Create creates the file at path and returns a Writer that owns it.
// Close also closes the file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewWriter(f)
	w.file = f
	return w, nil
}

// WriteFrame encodes cmds as one frame.
func (w *Writer) WriteFrame(cmds ...Command) error {
	return w.WriteRawFrame(EncodeCommands(cmds...))
}

// WriteRawFrame writes payload behind its little-endian length prefix.
func (w *Writer) WriteRawFrame(payload []byte) error {
	if w.closed {
		return fmt.Errorf("replay: writer closed")
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("replay: frame of %d bytes exceeds prefix range", len(payload))
	}
	var hdr [PrefixSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.out.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.out.Write(payload); err != nil {
		return err
	}
	w.frames++
	w.size += int64(PrefixSize + len(payload))
	return nil
}

// Frames returns how many frames were written.
func (w *Writer) Frames() int { return w.frames }

// Size returns the number of bytes written.
func (w *Writer) Size() int64 { return w.size }

// Sum32 returns the CRC-32 (IEEE) of everything written so far.
func (w *Writer) Sum32() uint32 { return w.crc32.Sum32() }

// Close flushes buffered frames and closes the file when the writer owns one.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		if w.file != nil {
			_ = w.file.Close()
		}
		return err
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
