package assistant

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLocation(t *testing.T) {
	tests := []struct {
		name string
		meta Meta
		want string
	}{
		{"complete", Meta{City: "San%20Francisco", Region: "CA", Country: "US"}, "San Francisco, CA, US"},
		{"missing city", Meta{Region: "CA", Country: "US"}, "unknown"},
		{"missing region", Meta{City: "Athens", Country: "GR"}, "unknown"},
		{"missing country", Meta{City: "Athens", Region: "I"}, "unknown"},
		{"bad escape kept raw", Meta{City: "a%zz", Region: "r", Country: "c"}, "a%zz, r, c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.Location(); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalTime(t *testing.T) {
	now := time.Date(2024, 3, 5, 17, 4, 9, 0, time.UTC)

	got := Meta{Timezone: "Europe/Athens"}.LocalTime(now)
	if got != "3/5/2024, 7:04:09 PM" {
		t.Errorf("LocalTime = %q", got)
	}

	bogus := Meta{Timezone: "Not/AZone"}.LocalTime(now)
	if want := now.In(time.Local).Format(TimeLayout); bogus != want {
		t.Errorf("unknown zone should fall back to local: got %q want %q", bogus, want)
	}
}

func TestSystemPrompt(t *testing.T) {
	req := &Request{
		Language: LanguageGreek,
		Meta:     Meta{City: "Athens", Region: "I", Country: "GR", Timezone: "UTC"},
	}
	now := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	prompt := SystemPrompt(Persona{}, req, now)
	lines := strings.Split(prompt, "\n")

	if len(lines) != len(DefaultPersona)+len(DefaultDisclosures)+3 {
		t.Fatalf("got %d lines", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "- ") {
			t.Errorf("line %q lacks bullet", l)
		}
	}
	if lines[0] != "- You are Swift, a friendly and helpful voice assistant." {
		t.Errorf("first line = %q", lines[0])
	}

	loc := len(DefaultPersona)
	if lines[loc] != "- User location is Athens, I, GR." {
		t.Errorf("location line = %q", lines[loc])
	}
	if lines[loc+1] != "- The current time is 1/2/2024, 9:30:00 AM." {
		t.Errorf("time line = %q", lines[loc+1])
	}
	if last := lines[len(lines)-1]; last != "- Respond in Greek." {
		t.Errorf("last line = %q", last)
	}
}

func TestSystemPromptCustomPersona(t *testing.T) {
	req := &Request{Language: LanguageEnglish}
	prompt := SystemPrompt(Persona{Lines: []string{"You are Tess."}, Disclosures: []string{"You run locally."}}, req, time.Now())

	want := []string{
		"- You are Tess.",
		"- User location is unknown.",
	}
	for _, w := range want {
		if !strings.Contains(prompt, w) {
			t.Errorf("prompt missing %q:\n%s", w, prompt)
		}
	}
	if strings.Contains(prompt, "Swift") {
		t.Error("default persona should be replaced")
	}
	if !strings.HasSuffix(prompt, "- You run locally.\n- Respond in English.") {
		t.Errorf("unexpected tail:\n%s", prompt)
	}
}
