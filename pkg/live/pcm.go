package live

import "math"

// levelStride is the sample subsampling step for the volume meter. Reading
// every 50th sample is plenty for a UI indicator and keeps the capture
// callback cheap.
const levelStride = 50

// meterLevel computes the input level of a little-endian s16 PCM frame as
// the mean absolute amplitude of the subsampled signal, normalized to [0, 1].
func meterLevel(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < samples; i += levelStride {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		sum += math.Abs(float64(s) / 32768.0)
	}
	return sum / (float64(samples) / levelStride)
}

// pcmDuration returns the play time of an s16 mono PCM frame.
func pcmDuration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(pcm)/2) / float64(sampleRate)
}
