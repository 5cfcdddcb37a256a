package assistant

import (
	"net/url"
	"strings"
	"time"
)

// TimeLayout renders the current time the way an en-US locale would.
const TimeLayout = "1/2/2006, 3:04:05 PM"

// UnknownLocation is used when any location header is missing.
const UnknownLocation = "unknown"

// DefaultPersona opens the system prompt.
var DefaultPersona = []string{
	"You are Swift, a friendly and helpful voice assistant.",
	"Respond briefly to the user's request, and do not provide unnecessary information.",
	"If you don't understand the user's request, ask for clarification.",
	"You do not have access to up-to-date information, so you should not provide real-time data.",
	"You are not capable of performing actions other than responding to the user.",
	"Do not use markdown, emojis, or other formatting in your responses. Respond in a way easily spoken by text-to-speech software.",
}

// DefaultDisclosures follow the location and time lines.
var DefaultDisclosures = []string{
	"Your large language model is GPT-4, created by OpenAI.",
	"Your text-to-speech is powered by Eleven Labs.",
	"You are built with Go and served by Fiber.",
}

// Location formats "<city>, <region>, <country>", or UnknownLocation when
// any part is absent. The city arrives URL-encoded.
func (m Meta) Location() string {
	if m.City == "" || m.Region == "" || m.Country == "" {
		return UnknownLocation
	}
	city := m.City
	if decoded, err := url.PathUnescape(city); err == nil {
		city = decoded
	}
	return city + ", " + m.Region + ", " + m.Country
}

// LocalTime formats now in the request's timezone, falling back to the
// server's zone when the header is absent or not a known IANA name.
func (m Meta) LocalTime(now time.Time) string {
	loc := time.Local
	if m.Timezone != "" {
		if l, err := time.LoadLocation(m.Timezone); err == nil {
			loc = l
		}
	}
	return now.In(loc).Format(TimeLayout)
}

// Persona is the configurable text of the system prompt.
type Persona struct {
	Lines       []string
	Disclosures []string
}

// DefaultPersonaText returns the built-in persona.
func DefaultPersonaText() Persona {
	return Persona{Lines: DefaultPersona, Disclosures: DefaultDisclosures}
}

// SystemPrompt builds the system instruction for a request. Empty persona
// sections fall back to the defaults.
func SystemPrompt(persona Persona, req *Request, now time.Time) string {
	if len(persona.Lines) == 0 {
		persona.Lines = DefaultPersona
	}
	if len(persona.Disclosures) == 0 {
		persona.Disclosures = DefaultDisclosures
	}

	lines := make([]string, 0, len(persona.Lines)+len(persona.Disclosures)+3)
	lines = append(lines, persona.Lines...)
	lines = append(lines,
		"User location is "+req.Meta.Location()+".",
		"The current time is "+req.Meta.LocalTime(now)+".",
	)
	lines = append(lines, persona.Disclosures...)
	lines = append(lines, "Respond in "+req.Language.Name()+".")

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}
