package audioio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// ErrInvalidWAV is returned when data is not a PCM WAV file.
var ErrInvalidWAV = errors.New("audioio: invalid wav data")

// EncodeWAV wraps PCM16 samples in a WAV container.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("encode wav: bad format %d Hz x %d", sampleRate, channels)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}

	return io.ReadAll(ws.Reader())
}

// DecodeWAV reads a 16-bit PCM WAV file. Stereo input is downmixed to mono.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, err error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}
	if dec.BitDepth != 16 {
		return nil, 0, fmt.Errorf("%w: %d-bit samples", ErrInvalidWAV, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	if dec.NumChans == 2 {
		samples = StereoToMono(samples)
	}

	return samples, int(dec.SampleRate), nil
}
