package media

// VideoInfo describes one video stream.
type VideoInfo struct {
	Codec    string
	Width    int
	Height   int
	TimeBase Rational
}

// AudioInfo describes one audio stream.
type AudioInfo struct {
	Codec      string
	Format     SampleFormat
	Channels   int
	SampleRate int
	TimeBase   Rational
}

// Info is the static description of an opened source. It is established
// once at open time and never changes afterwards.
type Info struct {
	Path     string
	Plugin   string
	Video    []VideoInfo
	Audio    []AudioInfo
	Duration Timestamp // Zero when unknown
	Speed    Rational  // Nominal video frame rate
}

// StreamCount returns the total number of streams.
func (i Info) StreamCount() int {
	return len(i.Video) + len(i.Audio)
}

// HasVideo reports whether the source has at least one video stream.
func (i Info) HasVideo() bool {
	return len(i.Video) > 0
}

// HasAudio reports whether the source has at least one audio stream.
func (i Info) HasAudio() bool {
	return len(i.Audio) > 0
}

// Start returns time zero in the first stream's time base.
func (i Info) Start() Timestamp {
	switch {
	case len(i.Video) > 0:
		return Timestamp{Base: i.Video[0].TimeBase}
	case len(i.Audio) > 0:
		return Timestamp{Base: i.Audio[0].TimeBase}
	default:
		return Timestamp{Base: TimeBaseMillis}
	}
}
