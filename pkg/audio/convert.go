package audio

import (
	"encoding/binary"
	"math"
)

// Convert returns c downmixed to mono (when target is mono) and resampled to
// target.SampleRate. Only mono and stereo targets are supported; other
// channel counts are averaged to mono first.
func (c Clip) Convert(target Format) Clip {
	out := c
	if out.Channels > 1 && target.Channels == 1 {
		out = Clip{PCM: DownmixMono(out.PCM, out.Channels), Format: Format{SampleRate: out.SampleRate, Channels: 1}}
	}
	if out.Channels == 1 && target.SampleRate > 0 && out.SampleRate != target.SampleRate {
		out = Clip{PCM: ResampleMono16(out.PCM, out.SampleRate, target.SampleRate), Format: Format{SampleRate: target.SampleRate, Channels: 1}}
	}
	return out
}

// DownmixMono averages every frame of interleaved int16 PCM with the given
// channel count into a single sample. Arithmetic is done in int32 so the
// result cannot overflow.
func DownmixMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			idx := i*frameBytes + ch*2
			sum += int32(int16(binary.LittleEndian.Uint16(pcm[idx : idx+2])))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/int32(channels))))
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. Invalid rates or equal rates return pcm unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)
	sample := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	for i := range dstSamples {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := sample(idx)
		s1 := s0
		if idx+1 < srcSamples {
			s1 = sample(idx + 1)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s0*(1-frac)+s1*frac)))
	}
	return out
}

// Float32 converts mono int16 PCM to samples in [-1, 1).
func Float32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples
}

// RMS returns the root-mean-square amplitude of int16 PCM. Silence is 0,
// full-scale noise approaches 32768.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
