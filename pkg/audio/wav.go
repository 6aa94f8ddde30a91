// Package audio holds the small amount of audio handling the transcription
// adapters share: parsing and writing RIFF/WAVE containers around 16-bit
// PCM, and converting clips to the mono formats speech models expect.
//
// Clients may send either a complete WAV file or bare little-endian int16
// PCM. [Decode] accepts both.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedWAV is returned for WAV files that are not 16-bit PCM.
var ErrUnsupportedWAV = errors.New("audio: unsupported wav encoding")

// ErrEmpty is returned when a clip carries no samples.
var ErrEmpty = errors.New("audio: empty clip")

const (
	headerSize    = 44
	bitsPerSample = 16
	formatPCM     = 1
)

// Format describes the sample rate and channel count of a PCM clip.
type Format struct {
	SampleRate int
	Channels   int
}

// SpeechFormat is 16 kHz mono, the native input of whisper-family models.
var SpeechFormat = Format{SampleRate: 16000, Channels: 1}

// Clip is a buffer of interleaved little-endian int16 PCM samples.
type Clip struct {
	PCM []byte
	Format
}

// Duration returns the playback length of c.
func (c Clip) Duration() time.Duration {
	bps := c.SampleRate * c.Channels * bitsPerSample / 8
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(c.PCM)) * time.Second / time.Duration(bps)
}

// IsWAV reports whether b starts with a RIFF/WAVE header.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}

// Decode interprets b as a WAV file when it has a RIFF/WAVE header and as
// raw int16 PCM in the raw format otherwise.
func Decode(b []byte, raw Format) (Clip, error) {
	if len(b) == 0 {
		return Clip{}, ErrEmpty
	}
	if IsWAV(b) {
		return DecodeWAV(b)
	}
	if raw.SampleRate <= 0 || raw.Channels <= 0 {
		return Clip{}, fmt.Errorf("audio: invalid raw format %dHz/%dch", raw.SampleRate, raw.Channels)
	}
	pcm := b
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	return Clip{PCM: pcm, Format: raw}, nil
}

// DecodeWAV parses a RIFF/WAVE file holding 16-bit PCM. Unknown chunks
// (LIST, fact, ...) are skipped.
func DecodeWAV(b []byte) (Clip, error) {
	if !IsWAV(b) {
		return Clip{}, errors.New("audio: missing RIFF/WAVE header")
	}
	var (
		format  Format
		haveFmt bool
	)
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			if id == "data" {
				// Streamed WAVs often carry a placeholder data size.
				size = len(b) - body
			} else {
				return Clip{}, fmt.Errorf("audio: chunk %q overruns file", id)
			}
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			tag := binary.LittleEndian.Uint16(b[body : body+2])
			bits := binary.LittleEndian.Uint16(b[body+14 : body+16])
			if tag != formatPCM || bits != bitsPerSample {
				return Clip{}, fmt.Errorf("%w: format tag %d, %d bits", ErrUnsupportedWAV, tag, bits)
			}
			format.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Clip{}, errors.New("audio: data chunk before fmt chunk")
			}
			pcm := b[body : body+size]
			if len(pcm) == 0 {
				return Clip{}, ErrEmpty
			}
			return Clip{PCM: pcm[:len(pcm)&^1], Format: format}, nil
		}
		// Chunks are word aligned.
		off = body + size + size&1
	}
	return Clip{}, errors.New("audio: no data chunk")
}

// EncodeWAV wraps c in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(c Clip) []byte {
	byteRate := c.SampleRate * c.Channels * bitsPerSample / 8
	blockAlign := c.Channels * bitsPerSample / 8
	dataSize := len(c.PCM)

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(c.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[headerSize:], c.PCM)
	return buf
}

// AsWAV returns b unchanged when it already is a WAV file and otherwise
// wraps it as raw PCM in the raw format.
func AsWAV(b []byte, raw Format) ([]byte, error) {
	if IsWAV(b) {
		return b, nil
	}
	clip, err := Decode(b, raw)
	if err != nil {
		return nil, err
	}
	return EncodeWAV(clip), nil
}
