package replay

import (
	"errors"
	"testing"
	"time"
)

func TestIndexerIndexesEverySegment(t *testing.T) {
	sizes := []int{10, 0, 5, 300, 1}
	payloads := make([][]byte, len(sizes))
	for i, n := range sizes {
		payloads[i] = make([]byte, n)
	}
	data := rawRecording(t, payloads...)

	ix := NewIndexer(data)
	c, err := ix.Step(time.Hour)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !c.Done || c.Progress != 1 {
		t.Fatalf("expected completed chunk, got %+v", c)
	}
	frames := ix.Frames()
	if len(frames) != len(sizes) {
		t.Fatalf("indexed %d frames, want %d", len(frames), len(sizes))
	}
	prev := -1
	for i, d := range frames {
		if d.Size != sizes[i] {
			t.Fatalf("frame %d size %d, want %d", i, d.Size, sizes[i])
		}
		if d.Offset <= prev {
			t.Fatalf("frame %d offset %d not increasing", i, d.Offset)
		}
		if d.End() > len(data) {
			t.Fatalf("frame %d ends at %d past buffer %d", i, d.End(), len(data))
		}
		prev = d.Offset
	}
}

func TestIndexerChunksRespectBudget(t *testing.T) {
	payloads := make([][]byte, 10)
	for i := range payloads {
		payloads[i] = []byte{byte(i)}
	}
	ix := NewIndexer(rawRecording(t, payloads...))
	ix.SetClock(steppingClock(time.Millisecond))

	var chunks []Chunk
	for c, err := range ix.Chunks(2 * time.Millisecond) {
		if err != nil {
			t.Fatalf("chunk error: %v", err)
		}
		chunks = append(chunks, c)
	}

	wantFrames := []int{3, 6, 9, 10}
	if len(chunks) != len(wantFrames) {
		t.Fatalf("got %d chunks, want %d: %+v", len(chunks), len(wantFrames), chunks)
	}
	last := 0.0
	for i, c := range chunks {
		if c.Frames != wantFrames[i] {
			t.Fatalf("chunk %d indexed %d frames, want %d", i, c.Frames, wantFrames[i])
		}
		if c.Progress <= last {
			t.Fatalf("chunk %d progress %v did not advance past %v", i, c.Progress, last)
		}
		if c.Done != (i == len(chunks)-1) {
			t.Fatalf("chunk %d Done=%v", i, c.Done)
		}
		last = c.Progress
	}
	if last != 1 {
		t.Fatalf("final progress %v, want 1", last)
	}

	for range ix.Chunks(time.Hour) {
		t.Fatal("completed indexer yielded another chunk")
	}
	if c, err := ix.Step(time.Hour); err != nil || !c.Done || c.Frames != 10 {
		t.Fatalf("Step after completion = %+v, %v", c, err)
	}
}

func TestIndexerEmptyBuffer(t *testing.T) {
	ix := NewIndexer(nil)
	c, err := ix.Step(time.Millisecond)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !c.Done || c.Frames != 0 || c.Progress != 1 {
		t.Fatalf("unexpected chunk for empty buffer: %+v", c)
	}
}

func TestIndexerMalformed(t *testing.T) {
	good := rawRecording(t, []byte{1, 2})
	tests := []struct {
		name  string
		data  []byte
		frame int
		size  int
	}{
		{"truncated prefix", append(append([]byte{}, good...), 0x01, 0x00), 1, -1},
		{"payload overrun", append(append([]byte{}, good...), 0x08, 0, 0, 0, 1, 2), 1, 8},
		{"huge size", []byte{0xFF, 0xFF, 0xFF, 0x7F, 0}, 0, 0x7FFFFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndexer(tt.data)
			_, err := ix.Step(time.Hour)
			if !errors.Is(err, ErrMalformedRecording) {
				t.Fatalf("expected ErrMalformedRecording, got %v", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %T", err)
			}
			if me.Frame != tt.frame || me.Size != tt.size {
				t.Fatalf("error frame %d size %d, want frame %d size %d", me.Frame, me.Size, tt.frame, tt.size)
			}
			if _, again := ix.Step(time.Hour); again != err {
				t.Fatalf("expected the same error on retry, got %v", again)
			}
		})
	}
}
