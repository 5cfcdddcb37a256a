package tts

// Language codes understood by the assistant.
const (
	LanguageEnglish = "en"
	LanguageGreek   = "el"
)

// ElevenLabs preset voices.
const (
	VoiceRachel = "21m00Tcm4TlvDq8ikWAM" // American female, calm
	VoiceDomi   = "AZnzlk1XvdvUeBnXmlld" // American female, strong
)

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"rachel": VoiceRachel,
	"domi":   VoiceDomi,
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"elli":   "MF3mGyEYCl7XYWbV9V6O",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"adam":   "pNInz6obpgDQGcFmaJgB",
}

// DefaultLanguageVoices returns the voice used for each supported language.
func DefaultLanguageVoices() map[string]string {
	return map[string]string{
		LanguageEnglish: VoiceRachel,
		LanguageGreek:   VoiceDomi,
	}
}

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}

// googleLanguageCodes maps assistant languages to BCP-47 tags.
var googleLanguageCodes = map[string]string{
	LanguageEnglish: "en-US",
	LanguageGreek:   "el-GR",
}

func googleLanguageCode(lang string) string {
	if code, ok := googleLanguageCodes[lang]; ok {
		return code
	}
	return googleLanguageCodes[LanguageEnglish]
}
