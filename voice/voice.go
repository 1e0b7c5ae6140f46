// Package voice wraps speech-to-text capture and text-to-speech playback as
// plain text in and out. Both are explicit request/response capabilities
// with a start/stop lifecycle rather than ambient globals.
package voice

import (
	"context"
	"io"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"

	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
)

// Config selects the audio provider endpoint and models.
type Config struct {
	APIKey   string
	BaseURL  string
	STTModel string
	TTSModel string
	TTSVoice string
}

func (c Config) client() *openai.Client {
	clientConfig := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		clientConfig.BaseURL = c.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// Recognizer transcribes one listening session at a time.
type Recognizer struct {
	client *openai.Client
	model  string
	active atomic.Bool
}

// NewRecognizer creates a speech-to-text capability.
func NewRecognizer(cfg Config) *Recognizer {
	model := cfg.STTModel
	if model == "" {
		model = openai.Whisper1
	}
	return &Recognizer{client: cfg.client(), model: model}
}

// Listening reports whether a recognition session is active.
func (r *Recognizer) Listening() bool {
	return r.active.Load()
}

// RecognizeOnce transcribes one captured audio clip into a single final
// transcript. At most one recognition session may be active; both errors
// and natural completion reset the listening state.
func (r *Recognizer) RecognizeOnce(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if !r.active.CompareAndSwap(false, true) {
		return "", clienterrors.RecognizerBusy("a recognition session is already active")
	}
	defer r.active.Store(false)

	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", clienterrors.Wrap(err, clienterrors.ErrCodeTransportFailed, "transcribe audio")
	}
	return resp.Text, nil
}

// Speaker synthesizes assistant text when the user toggle is on.
type Speaker struct {
	client  *openai.Client
	model   openai.SpeechModel
	voice   openai.SpeechVoice
	sink    func(io.ReadCloser) error
	enabled atomic.Bool
}

// NewSpeaker creates a text-to-speech capability. sink receives the
// synthesized audio stream and owns closing it; playback is a platform
// concern the adapter stays out of.
func NewSpeaker(cfg Config, sink func(io.ReadCloser) error) *Speaker {
	model := openai.SpeechModel(cfg.TTSModel)
	if model == "" {
		model = openai.TTSModel1
	}
	v := openai.SpeechVoice(cfg.TTSVoice)
	if v == "" {
		v = openai.VoiceAlloy
	}
	return &Speaker{client: cfg.client(), model: model, voice: v, sink: sink}
}

// SetEnabled flips the user-controlled voice output toggle.
func (s *Speaker) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether voice output is on.
func (s *Speaker) Enabled() bool {
	return s.enabled.Load()
}

// Speak synthesizes text and hands the audio to the sink. A disabled
// speaker does nothing.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if !s.Enabled() || text == "" {
		return nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: s.model,
		Voice: s.voice,
		Input: text,
	})
	if err != nil {
		return clienterrors.Wrap(err, clienterrors.ErrCodeTransportFailed, "synthesize speech")
	}
	if s.sink == nil {
		return resp.Close()
	}
	return s.sink(resp)
}
