// Package framecodec decodes intra-only video and uncompressed audio units.
//
// Video units hold a complete still picture (JPEG, PNG, any format
// registered with the image package, or raw RGBA). Audio units hold PCM
// samples. None of the codecs keep state between units.
package framecodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/user/mediaio/pkg/media"
	"github.com/user/mediaio/pkg/ports"
)

// Video codec tags. They match MP4 sample entry types where one exists.
const (
	CodecJPEG  = "jpeg"
	CodecMJPGA = "mjpa"
	CodecMJPGB = "mjpb"
	CodecPNG   = "png "
	CodecImage = "image"
	CodecRGBA  = "rgba"
)

// Audio codec tags.
const (
	CodecPCMS16LE = "sowt"
	CodecPCMS16BE = "twos"
	CodecPCMF32BE = "fl32"
	CodecLPCM     = "lpcm"
)

// SupportsVideo reports whether codec can be decoded.
func SupportsVideo(codec string) bool {
	switch codec {
	case CodecJPEG, CodecMJPGA, CodecMJPGB, CodecPNG, CodecImage, CodecRGBA:
		return true
	}
	return false
}

// SupportsAudio reports whether codec can be decoded.
func SupportsAudio(codec string) bool {
	switch codec {
	case CodecPCMS16LE, CodecPCMS16BE, CodecPCMF32BE, CodecLPCM:
		return true
	}
	return false
}

// AudioFormat returns the sample format produced for codec. For lpcm the
// format comes from the stream description.
func AudioFormat(codec string, declared media.SampleFormat) media.SampleFormat {
	switch codec {
	case CodecPCMS16LE:
		return media.SampleS16LE
	case CodecPCMS16BE:
		return media.SampleS16BE
	case CodecPCMF32BE:
		return media.SampleF32BE
	}
	if declared == "" {
		return media.SampleS16LE
	}
	return declared
}

// Decoder implements ports.Decoder for the streams of one source.
type Decoder struct {
	video []media.VideoInfo
	audio []media.AudioInfo
}

// New creates a decoder for the streams described by info.
func New(info media.Info) (*Decoder, error) {
	for i, v := range info.Video {
		if !SupportsVideo(v.Codec) {
			return nil, fmt.Errorf("video stream %d: unsupported codec %q", i, v.Codec)
		}
	}
	for i, a := range info.Audio {
		if !SupportsAudio(a.Codec) {
			return nil, fmt.Errorf("audio stream %d: unsupported codec %q", i, a.Codec)
		}
	}
	return &Decoder{video: info.Video, audio: info.Audio}, nil
}

// DecodeVideo decodes a picture unit.
func (d *Decoder) DecodeVideo(unit media.Unit) (image.Image, error) {
	if unit.Stream < 0 || unit.Stream >= len(d.video) {
		return nil, fmt.Errorf("unknown video stream %d", unit.Stream)
	}
	v := d.video[unit.Stream]

	var (
		img image.Image
		err error
	)
	switch v.Codec {
	case CodecJPEG, CodecMJPGA, CodecMJPGB:
		img, err = jpeg.Decode(bytes.NewReader(unit.Data))
	case CodecPNG:
		img, err = png.Decode(bytes.NewReader(unit.Data))
	case CodecImage:
		img, _, err = image.Decode(bytes.NewReader(unit.Data))
	case CodecRGBA:
		img, err = decodeRGBA(unit.Data, v.Width, v.Height)
	default:
		err = fmt.Errorf("unsupported codec %q", v.Codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", v.Codec, err)
	}
	return img, nil
}

func decodeRGBA(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if want := width * height * 4; len(data) != want {
		return nil, fmt.Errorf("got %d bytes, want %d", len(data), want)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data)
	return img, nil
}

// EncodeRGBA returns the raw pixel payload of img for CodecRGBA units.
func EncodeRGBA(img image.Image) []byte {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return append([]byte(nil), rgba.Pix...)
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out.Pix
}

// DecodeAudio returns the samples of a PCM unit.
func (d *Decoder) DecodeAudio(unit media.Unit) (*media.AudioData, error) {
	if unit.Stream < 0 || unit.Stream >= len(d.audio) {
		return nil, fmt.Errorf("unknown audio stream %d", unit.Stream)
	}
	a := d.audio[unit.Stream]
	format := AudioFormat(a.Codec, a.Format)

	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}
	frame := format.BytesPerSample() * channels
	if frame == 0 || len(unit.Data)%frame != 0 {
		return nil, fmt.Errorf("decode %s samples: %d bytes is not a multiple of %d", a.Codec, len(unit.Data), frame)
	}

	return &media.AudioData{
		Format:     format,
		Channels:   channels,
		SampleRate: a.SampleRate,
		Data:       append([]byte(nil), unit.Data...),
	}, nil
}

// Flush does nothing; every unit decodes on its own.
func (d *Decoder) Flush() {}

// EncodeS16LE packs float samples in [-1, 1] as little-endian 16-bit PCM.
func EncodeS16LE(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(s*math.MaxInt16))))
	}
	return out
}

// Ensure Decoder implements ports.Decoder
var _ ports.Decoder = (*Decoder)(nil)
