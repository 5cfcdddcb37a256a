package audioio

import (
	"math"
	"testing"
)

func TestResample_SameRate(t *testing.T) {
	input := []int16{100, 200, 300, 400, 500}
	output := Resample(input, 16000, 16000)

	if len(output) != len(input) {
		t.Errorf("expected same length, got %d vs %d", len(output), len(input))
	}
}

func TestResample_Downsample(t *testing.T) {
	input := make([]int16, 4800)
	for i := range input {
		input[i] = int16(i % 1000)
	}

	output := Resample(input, 48000, 16000)

	if len(output) != 1600 {
		t.Errorf("expected 1600 samples, got %d", len(output))
	}
}

func TestResample_Upsample(t *testing.T) {
	input := []int16{0, 1000, 2000, 3000}
	output := Resample(input, 8000, 16000)

	if len(output) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(output))
	}
	// Midpoint between 0 and 1000.
	if output[1] != 500 {
		t.Errorf("expected interpolated 500, got %d", output[1])
	}
}

func TestResample_Empty(t *testing.T) {
	if out := Resample(nil, 48000, 16000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestBytesSamplesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, math.MaxInt16, math.MinInt16}
	data := SamplesToBytes(samples)

	if len(data) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(data))
	}
	if data[2] != 0x01 || data[3] != 0x00 {
		t.Errorf("expected little-endian encoding, got % x", data[2:4])
	}

	got := BytesToSamples(append(data, 0xff))
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
	if len(got) != len(samples) {
		t.Errorf("trailing byte should be ignored, got %d samples", len(got))
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := []int16{100, 200, -300, -100, math.MaxInt16, math.MaxInt16}
	mono := StereoToMono(stereo)

	want := []int16{150, -200, math.MaxInt16}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %d, want %d", i, mono[i], want[i])
		}
	}
}

func TestRMS(t *testing.T) {
	if rms := RMS(make([]int16, 100)); rms != 0 {
		t.Errorf("silence RMS = %f, want 0", rms)
	}
	if rms := RMS(nil); rms != 0 {
		t.Errorf("empty RMS = %f, want 0", rms)
	}

	loud := make([]int16, 100)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 16384
		} else {
			loud[i] = -16384
		}
	}
	if rms := RMS(loud); math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("square wave RMS = %f, want 0.5", rms)
	}
}

func TestToFloat32(t *testing.T) {
	out := ToFloat32([]int16{0, 16384, math.MinInt16})
	if out[0] != 0 || out[1] != 0.5 || out[2] != -1 {
		t.Errorf("unexpected scaling: %v", out)
	}
}

func BenchmarkResample(b *testing.B) {
	input := make([]int16, 4800)
	for i := range input {
		input[i] = int16(i % 1000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Resample(input, 48000, 16000)
	}
}
