// Package assistant runs one voice-assistant exchange.
//
// A request carries either typed text or a recorded utterance, the prior
// conversation, and a response language. The pipeline is strictly
// sequential:
//
//	validate → transcribe → complete → synthesize
//
// Each stage is timed into a Latencies record. Nothing is stored between
// requests; the client sends the whole history every time.
//
// # Usage
//
//	p := assistant.New(transcriber, llm, synth,
//	    assistant.WithLogger(logger),
//	    assistant.WithAudioMode(assistant.AudioBuffered),
//	)
//
//	req, err := assistant.ParseForm(form, meta)
//	if err != nil {
//	    // 400 {"error":"Invalid request"}
//	}
//	res, err := p.Run(ctx, req)
//
// Errors are sentinels checked with errors.Is: ErrInvalidRequest,
// ErrInvalidAudio, ErrMissingCompletion and ErrSynthesisFailed. Anything
// else is unexpected.
package assistant
