package mp4source

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/mediaio/pkg/adapters/framecodec"
	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// nonSyncSampleBit is sample_is_non_sync_sample in fragment sample flags.
const nonSyncSampleBit = 0x00010000

// ErrUnsupportedLayout is returned for files without a decodable track.
var ErrUnsupportedLayout = errors.New("unsupported layout")

type sample struct {
	pts    int64
	dur    uint32
	sync   bool
	size   uint32
	offset int64  // Progressive files: absolute file offset
	data   []byte // Fragmented files: payload read at open time
}

type track struct {
	id      uint32
	kind    media.StreamKind
	stream  int
	base    media.Rational
	video   media.VideoInfo
	audio   media.AudioInfo
	samples []sample
	next    int
}

func (t *track) timestamp(i int) media.Timestamp {
	return media.NewTimestamp(t.samples[i].pts, t.base)
}

// end returns the presentation time just after the last sample.
func (t *track) end() media.Timestamp {
	last := t.samples[len(t.samples)-1]
	return media.NewTimestamp(last.pts+int64(last.dur), t.base)
}

// Demuxer reads samples from a progressive or fragmented MP4 file and yields
// them in presentation order across all tracks.
type Demuxer struct {
	r      io.ReadSeekCloser
	info   media.Info
	tracks []*track
}

// NewDemuxer indexes every video and audio track of an MP4 file. It takes
// ownership of r.
func NewDemuxer(r io.ReadSeekCloser, path string) (*Demuxer, error) {
	d, err := newDemuxer(r, path)
	if err != nil {
		r.Close()
		return nil, err
	}
	return d, nil
}

func newDemuxer(r io.ReadSeekCloser, path string) (*Demuxer, error) {
	file, err := mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if file.IsFragmented() {
		// Fragment payloads are needed in memory, so decode again in full.
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}
		if file, err = mp4.DecodeFile(r); err != nil {
			return nil, fmt.Errorf("decode fragmented mp4: %w", err)
		}
	}

	moov := file.Moov
	if file.Init != nil && file.Init.Moov != nil {
		moov = file.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("%w: no moov box", ErrUnsupportedLayout)
	}

	d := &Demuxer{r: r, info: media.Info{Path: path, Plugin: PluginName}}

	var video, audio []*track
	var unsupported []string
	for _, trak := range moov.Traks {
		t, err := describe(trak)
		if err != nil {
			unsupported = append(unsupported, err.Error())
			continue
		}
		if t == nil {
			continue
		}
		if file.IsFragmented() {
			err = loadFragmentSamples(file, moov, t)
		} else {
			err = loadProgressiveSamples(trak, t)
		}
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", t.id, err)
		}
		if len(t.samples) == 0 {
			continue
		}
		if t.kind == media.StreamVideo {
			t.stream = len(d.info.Video)
			d.info.Video = append(d.info.Video, t.video)
			video = append(video, t)
		} else {
			t.stream = len(d.info.Audio)
			d.info.Audio = append(d.info.Audio, t.audio)
			audio = append(audio, t)
		}
	}

	if len(video)+len(audio) == 0 {
		if len(unsupported) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, strings.Join(unsupported, ", "))
		}
		return nil, fmt.Errorf("%w: no video or audio samples", ErrUnsupportedLayout)
	}

	d.tracks = append(video, audio...)
	d.finishInfo(moov)
	return d, nil
}

// describe returns the stream description of a decodable track, or nil for
// tracks that are neither video nor audio.
func describe(trak *mp4.TrakBox) (*track, error) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Mdhd == nil {
		return nil, nil
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil, nil
	}
	stsd := trak.Mdia.Minf.Stbl.Stsd
	if len(stsd.Children) == 0 {
		return nil, nil
	}
	entry := stsd.Children[0]
	codec := entry.Type()
	timescale := trak.Mdia.Mdhd.Timescale
	if timescale == 0 {
		return nil, fmt.Errorf("track %d has no timescale", trak.Tkhd.TrackID)
	}
	t := &track{
		id:   trak.Tkhd.TrackID,
		base: media.NewRational(1, int64(timescale)),
	}

	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		if !framecodec.SupportsVideo(codec) {
			return nil, fmt.Errorf("video codec %s", strings.TrimSpace(codec))
		}
		v := media.VideoInfo{Codec: codec, TimeBase: t.base}
		if vse, ok := entry.(*mp4.VisualSampleEntryBox); ok {
			v.Width, v.Height = int(vse.Width), int(vse.Height)
		}
		if v.Width == 0 || v.Height == 0 {
			v.Width, v.Height = int(trak.Tkhd.Width>>16), int(trak.Tkhd.Height>>16)
		}
		t.kind = media.StreamVideo
		t.video = v

	case "soun":
		if !framecodec.SupportsAudio(codec) {
			return nil, fmt.Errorf("audio codec %s", strings.TrimSpace(codec))
		}
		a := media.AudioInfo{
			Codec:      codec,
			Format:     framecodec.AudioFormat(codec, ""),
			SampleRate: int(timescale),
			TimeBase:   t.base,
		}
		if ase, ok := entry.(*mp4.AudioSampleEntryBox); ok {
			a.Channels = int(ase.ChannelCount)
			if ase.SampleRate > 0 {
				a.SampleRate = int(ase.SampleRate)
			}
		}
		t.kind = media.StreamAudio
		t.audio = a

	default:
		return nil, nil
	}
	return t, nil
}

func loadProgressiveSamples(trak *mp4.TrakBox, t *track) error {
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stts == nil || stbl.Stsc == nil {
		return fmt.Errorf("incomplete sample table")
	}

	n := stbl.Stsz.GetNrSamples()
	t.samples = make([]sample, 0, n)
	prevChunk := -1
	var offset int64
	for nr := uint32(1); nr <= n; nr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return fmt.Errorf("sample %d: %w", nr, err)
		}
		if chunkNr != prevChunk {
			if offset, err = chunkOffset(stbl, chunkNr); err != nil {
				return fmt.Errorf("sample %d: %w", nr, err)
			}
			prevChunk = chunkNr
		} else {
			offset += int64(t.samples[len(t.samples)-1].size)
		}

		// Composition offsets are ignored: supported codecs are intra-only.
		dts, dur := stbl.Stts.GetDecodeTime(nr)
		sync := true
		if stbl.Stss != nil {
			sync = stbl.Stss.IsSyncSample(nr)
		}
		t.samples = append(t.samples, sample{
			pts:    int64(dts),
			dur:    dur,
			sync:   sync,
			size:   stbl.Stsz.GetSampleSize(int(nr)),
			offset: offset,
		})
	}
	return nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (int64, error) {
	switch {
	case stbl.Stco != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Stco.ChunkOffset) {
			return 0, fmt.Errorf("chunk %d out of range", chunkNr)
		}
		return int64(stbl.Stco.ChunkOffset[chunkNr-1]), nil
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk %d out of range", chunkNr)
		}
		return int64(stbl.Co64.ChunkOffset[chunkNr-1]), nil
	}
	return 0, fmt.Errorf("no chunk offset table")
}

// loadFragmentSamples collects the samples of t from every fragment.
// Fragments that interleave several tracks in one moof are rejected.
func loadFragmentSamples(file *mp4.File, moov *mp4.MoovBox, t *track) error {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, tx := range moov.Mvex.Trexs {
			if tx.TrackID == t.id {
				trex = tx
				break
			}
		}
	}

	for _, seg := range file.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			if len(frag.Moof.Trafs) > 1 {
				return fmt.Errorf("%w: fragment with %d track runs", ErrUnsupportedLayout, len(frag.Moof.Trafs))
			}
			if frag.Moof.Trafs[0].Tfhd.TrackID != t.id {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				t.samples = append(t.samples, sample{
					pts:  int64(s.DecodeTime) + int64(s.CompositionTimeOffset),
					dur:  s.Dur,
					sync: s.Flags&nonSyncSampleBit == 0,
					size: uint32(len(s.Data)),
					data: s.Data,
				})
			}
		}
	}
	sort.SliceStable(t.samples, func(i, j int) bool { return t.samples[i].pts < t.samples[j].pts })
	return nil
}

// finishInfo fills in duration, speed and any audio channel counts the
// sample entries did not carry.
func (d *Demuxer) finishInfo(moov *mp4.MoovBox) {
	for _, t := range d.tracks {
		if t.kind != media.StreamAudio {
			continue
		}
		a := &d.info.Audio[t.stream]
		if a.Channels > 0 {
			continue
		}
		a.Channels = 1
		first := t.samples[0]
		if bps := a.Format.BytesPerSample(); bps > 0 && first.dur > 0 {
			if ch := int(first.size) / (int(first.dur) * bps); ch > 0 {
				a.Channels = ch
			}
		}
	}

	base := d.info.Start().Base
	duration := media.Timestamp{Base: base}
	for _, t := range d.tracks {
		end := t.end()
		for _, trak := range moov.Traks {
			if trak.Tkhd.TrackID == t.id && trak.Mdia.Mdhd.Duration > 0 {
				end = media.NewTimestamp(int64(trak.Mdia.Mdhd.Duration), t.base)
			}
		}
		if end.After(duration) {
			duration = end.Rescale(base)
		}
	}
	d.info.Duration = duration

	for _, t := range d.tracks {
		if t.kind == media.StreamVideo && t.samples[0].dur > 0 {
			d.info.Speed = reduce(t.base.Den, int64(t.samples[0].dur))
			break
		}
	}
}

func reduce(num, den int64) media.Rational {
	a, b := num, den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return media.NewRational(num, den)
	}
	return media.NewRational(num/a, den/a)
}

// Info returns the stream layout.
func (d *Demuxer) Info() media.Info {
	return d.info
}

// ReadUnit returns the next sample across all tracks in presentation order.
func (d *Demuxer) ReadUnit() (media.Unit, error) {
	var best *track
	for _, t := range d.tracks {
		if t.next >= len(t.samples) {
			continue
		}
		if best == nil || t.timestamp(t.next).Before(best.timestamp(best.next)) {
			best = t
		}
	}
	if best == nil {
		return media.Unit{}, io.EOF
	}

	i := best.next
	best.next++
	s := best.samples[i]
	data := s.data
	if data == nil {
		var err error
		if data, err = d.readAt(s.offset, s.size); err != nil {
			return media.Unit{}, fmt.Errorf("%w: %s track %d sample %d: %v", media.ErrDecodeUnitFailed, best.kind, best.id, i+1, err)
		}
	}

	return media.Unit{
		Kind:      best.kind,
		Stream:    best.stream,
		Timestamp: best.timestamp(i),
		Duration:  int64(s.dur),
		Keyframe:  s.sync,
		Data:      data,
	}, nil
}

func (d *Demuxer) readAt(offset int64, size uint32) ([]byte, error) {
	if _, err := d.r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// SeekKeyframe positions every track at the last sync sample at or before t.
// Tracks whose last sample ends before t are exhausted.
func (d *Demuxer) SeekKeyframe(t media.Timestamp) error {
	for _, tr := range d.tracks {
		if !t.Before(tr.end()) {
			tr.next = len(tr.samples)
			continue
		}
		// First sample after t, then back to the preceding sync sample.
		i := sort.Search(len(tr.samples), func(i int) bool {
			return tr.timestamp(i).After(t)
		}) - 1
		for i > 0 && !tr.samples[i].sync {
			i--
		}
		if i < 0 {
			i = 0
		}
		tr.next = i
	}
	return nil
}

// Close closes the underlying file.
func (d *Demuxer) Close() error {
	return d.r.Close()
}

// Ensure Demuxer implements ports.Demuxer
var _ ports.Demuxer = (*Demuxer)(nil)
