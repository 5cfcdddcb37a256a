package audioio

import (
	"errors"
	"testing"
)

func TestEncodeDecodeWAV(t *testing.T) {
	samples := []int16{0, 1200, -1200, 32000, -32000, 7}

	data, err := EncodeWAV(samples, 16000, 1)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header: % x", data[:12])
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	got, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	data, err := EncodeWAV([]int16{100, 300, -50, -150}, 8000, 2)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	got, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(got) != 2 || got[0] != 200 || got[1] != -100 {
		t.Errorf("unexpected downmix: %v", got)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV([]byte("definitely not a wav file"))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestEncodeWAVRejectsBadFormat(t *testing.T) {
	if _, err := EncodeWAV([]int16{1}, 0, 1); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
