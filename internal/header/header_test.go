package header

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "Hello"},
		{"Hi! How can I help?", "Hi!%20How%20can%20I%20help%3F"},
		{"it's (fine) *ok* ~x_y-z.", "it's%20(fine)%20*ok*%20~x_y-z."},
		{"a+b=c&d/e", "a%2Bb%3Dc%26d%2Fe"},
		{"Γειά σου", "%CE%93%CE%B5%CE%B9%CE%AC%20%CF%83%CE%BF%CF%85"},
		{`{"transcription":12}`, "%7B%22transcription%22%3A12%7D"},
		{"line\nbreak", "line%0Abreak"},
	}

	for _, tt := range tests {
		if got := Encode(tt.in); got != tt.want {
			t.Errorf("Encode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeInvertsEncode(t *testing.T) {
	for _, s := range []string{"Hello world", "a+b", "Γειά σου!", "100% (sure)"} {
		got, err := Decode(Encode(s))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != s {
			t.Errorf("Decode(Encode(%q)) = %q", s, got)
		}
	}
}

func TestDecodeRejectsBadEscape(t *testing.T) {
	if _, err := Decode("%zz"); err == nil {
		t.Error("expected error for malformed escape")
	}
}
