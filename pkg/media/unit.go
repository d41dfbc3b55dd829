package media

// StreamKind distinguishes video and audio streams.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
)

// String returns the string representation of the stream kind.
func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Unit is one compressed chunk read from a source. Decoding a unit produces
// zero or one frames.
type Unit struct {
	Kind      StreamKind
	Stream    int       // Index into Info.Video or Info.Audio
	Timestamp Timestamp // Presentation time in the stream time base
	Duration  int64     // Duration in ticks of Timestamp.Base
	Keyframe  bool      // Decodable without earlier units
	Data      []byte
}

// End returns the presentation time just after the unit.
func (u Unit) End() Timestamp {
	return u.Timestamp.Add(u.Duration)
}
