package assistant

import (
	"bytes"
	"errors"
	"mime/multipart"
	"testing"
)

type formFile struct {
	name string
	data []byte
}

func buildForm(t *testing.T, values map[string][]string, file *formFile) *multipart.Form {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			if err := w.WriteField(key, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(FieldInput, file.name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file.data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form
}

func TestParseFormText(t *testing.T) {
	form := buildForm(t, map[string][]string{
		FieldInput:    {"Hello"},
		FieldLanguage: {"en"},
		FieldMessage: {
			`{"role":"user","content":"hi"}`,
			`{"role":"assistant","content":"hello there"}`,
		},
	}, nil)

	req, err := ParseForm(form, Meta{RequestID: "r1"})
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if req.Input.IsAudio() || req.Input.Text != "Hello" {
		t.Errorf("input = %+v, want text Hello", req.Input)
	}
	if req.Language != LanguageEnglish {
		t.Errorf("language = %q", req.Language)
	}
	if len(req.Messages) != 2 || req.Messages[1].Role != RoleAssistant {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.Meta.RequestID != "r1" {
		t.Errorf("meta not carried: %+v", req.Meta)
	}
}

func TestParseFormAudio(t *testing.T) {
	form := buildForm(t, map[string][]string{FieldLanguage: {"el"}},
		&formFile{name: "speech.wav", data: []byte("RIFF....")})

	req, err := ParseForm(form, Meta{})
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if !req.Input.IsAudio() {
		t.Fatal("expected audio input")
	}
	if req.Input.Audio.Filename != "speech.wav" || string(req.Input.Audio.Data) != "RIFF...." {
		t.Errorf("audio = %+v", req.Input.Audio)
	}
	if req.Language != LanguageGreek {
		t.Errorf("language = %q, want el", req.Language)
	}
}

func TestParseFormRejects(t *testing.T) {
	tests := []struct {
		name   string
		values map[string][]string
	}{
		{"missing input", map[string][]string{FieldLanguage: {"en"}}},
		{"empty input", map[string][]string{FieldInput: {""}, FieldLanguage: {"en"}}},
		{"missing language", map[string][]string{FieldInput: {"Hello"}}},
		{"unsupported language", map[string][]string{FieldInput: {"Hello"}, FieldLanguage: {"fr"}}},
		{"message not json", map[string][]string{
			FieldInput: {"Hello"}, FieldLanguage: {"en"}, FieldMessage: {"{"},
		}},
		{"message unknown role", map[string][]string{
			FieldInput: {"Hello"}, FieldLanguage: {"en"}, FieldMessage: {`{"role":"system","content":"x"}`},
		}},
		{"message missing content", map[string][]string{
			FieldInput: {"Hello"}, FieldLanguage: {"en"}, FieldMessage: {`{"role":"user"}`},
		}},
		{"message content not a string", map[string][]string{
			FieldInput: {"Hello"}, FieldLanguage: {"en"}, FieldMessage: {`{"role":"user","content":5}`},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForm(buildForm(t, tt.values, nil), Meta{})
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestParseFormEmptyUpload(t *testing.T) {
	form := buildForm(t, map[string][]string{FieldLanguage: {"en"}}, &formFile{name: "speech.webm"})
	if _, err := ParseForm(form, Meta{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestParseFormNil(t *testing.T) {
	if _, err := ParseForm(nil, Meta{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v", err)
	}
}

func TestLanguageToggle(t *testing.T) {
	if LanguageEnglish.Toggle() != LanguageGreek || LanguageGreek.Toggle() != LanguageEnglish {
		t.Error("toggle should flip en and el")
	}
	if LanguageGreek.Name() != "Greek" || LanguageEnglish.Name() != "English" {
		t.Error("unexpected language names")
	}
}
