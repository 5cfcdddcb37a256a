package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Form field names.
const (
	FieldInput    = "input"
	FieldMessage  = "message"
	FieldLanguage = "language"
)

// Language is a supported response language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageGreek   Language = "el"
)

// ParseLanguage accepts exactly "en" or "el".
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageEnglish, LanguageGreek:
		return Language(s), nil
	default:
		return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, s)
	}
}

// Name is the English name used in the system prompt.
func (l Language) Name() string {
	if l == LanguageGreek {
		return "Greek"
	}
	return "English"
}

// Toggle flips between English and Greek.
func (l Language) Toggle() Language {
	if l == LanguageGreek {
		return LanguageEnglish
	}
	return LanguageGreek
}

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate checks the role.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, m.Role)
	}
}

// ParseMessage decodes one JSON form entry. Both keys are required and
// content must be a string.
func ParseMessage(raw string) (Message, error) {
	var wire struct {
		Role    *string `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Message{}, fmt.Errorf("%w: message is not JSON: %v", ErrInvalidRequest, err)
	}
	if wire.Role == nil || wire.Content == nil {
		return Message{}, fmt.Errorf("%w: message needs role and content", ErrInvalidRequest)
	}
	m := Message{Role: Role(*wire.Role), Content: *wire.Content}
	return m, m.Validate()
}

// Audio is an uploaded recording.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Input is either text or audio, never both.
type Input struct {
	Text  string
	Audio *Audio
}

// IsAudio reports whether the input must be transcribed.
func (in Input) IsAudio() bool {
	return in.Audio != nil
}

// Meta is request context taken from headers.
type Meta struct {
	RequestID string
	Country   string
	Region    string
	City      string
	Timezone  string
}

// Request is a validated exchange request. It is not modified after parsing.
type Request struct {
	Input    Input
	Messages []Message
	Language Language
	Meta     Meta
}

// ParseForm validates a multipart form. Text input wins over a file with
// the same field name; an empty text field with no file is invalid.
func ParseForm(form *multipart.Form, meta Meta) (*Request, error) {
	if form == nil {
		return nil, fmt.Errorf("%w: missing form", ErrInvalidRequest)
	}

	input, err := parseInput(form)
	if err != nil {
		return nil, err
	}

	lang, err := ParseLanguage(first(form.Value[FieldLanguage]))
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(form.Value[FieldMessage]))
	for _, raw := range form.Value[FieldMessage] {
		m, err := ParseMessage(raw)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return &Request{
		Input:    input,
		Messages: messages,
		Language: lang,
		Meta:     meta,
	}, nil
}

func parseInput(form *multipart.Form) (Input, error) {
	if text := first(form.Value[FieldInput]); text != "" {
		return Input{Text: text}, nil
	}

	files := form.File[FieldInput]
	if len(files) == 0 {
		return Input{}, fmt.Errorf("%w: input is required", ErrInvalidRequest)
	}

	audio, err := readFile(files[0])
	if err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	// An empty upload counts as no input at all.
	if len(audio.Data) == 0 {
		return Input{}, fmt.Errorf("%w: input file is empty", ErrInvalidRequest)
	}
	return Input{Audio: audio}, nil
}

func readFile(fh *multipart.FileHeader) (*Audio, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &Audio{
		Data:        buf.Bytes(),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
