package replay

// Summary describes a recording as seen by Validate.
type Summary struct {
	Frames          int     `json:"frames"`
	Bytes           int     `json:"bytes"`
	Commands        int     `json:"commands"`
	EmptyFrames     int     `json:"emptyFrames"`
	LargestFrame    int     `json:"largestFrame"` // frame number with the biggest payload
	LargestSize     int     `json:"largestSize"`
	FramesPerSecond float64 `json:"framesPerSecond,omitempty"` // first tempo command, if any
	TempoChanges    int     `json:"tempoChanges"`
	SHA256          string  `json:"sha256"`
	CRC32           uint32  `json:"crc32"`
}

// DurationMillis estimates playback length at 1x speed using the first
// tempo command, or defaultFPS when the recording carries none.
func (s Summary) DurationMillis(defaultFPS float64) float64 {
	fps := s.FramesPerSecond
	if fps <= 0 {
		fps = defaultFPS
	}
	if fps <= 0 {
		return 0
	}
	return float64(s.Frames) * 1000.0 / fps
}
