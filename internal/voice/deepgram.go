package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	microphone "github.com/deepgram/deepgram-go-sdk/v3/pkg/audio/microphone"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/prepwise/prepwise/internal/interview"
)

// DeepgramService implements Service for the local microphone mode: the
// candidate's audio is streamed to Deepgram live transcription and comes
// back as transcript events attributed to the user. Assistant playback is
// handled by the web client, not here.
type DeepgramService struct {
	apiKey      string
	sampleRates []int

	events chan Event

	mu      sync.Mutex
	started bool
	stopped bool
	mic     *microphone.Microphone
	client  dgConn
}

// dgConn is the slice of the Deepgram websocket client this adapter uses:
// an audio sink plus connection control.
type dgConn interface {
	io.Writer
	Connect() bool
	Stop()
}

func NewDeepgramService(apiKey string, sampleRates []int) *DeepgramService {
	if len(sampleRates) == 0 {
		sampleRates = []int{16000, 48000, 44100, 32000, 24000}
	}
	return &DeepgramService{
		apiKey:      apiKey,
		sampleRates: sampleRates,
		events:      make(chan Event, 64),
	}
}

func (s *DeepgramService) Events() <-chan Event {
	return s.events
}

func (s *DeepgramService) Start(ctx context.Context, _ SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("deepgram session already started")
	}

	microphone.Initialize()
	listen.Init(listen.InitLib{LogLevel: listen.LogLevelDefault})

	var mic *microphone.Microphone
	var err error
	selectedSampleRate := 0
	for _, rate := range s.sampleRates {
		mic, err = microphone.New(microphone.AudioConfig{InputChannels: 1, SamplingRate: float32(rate)})
		if err != nil {
			slog.Warn("microphone open failed", "rate", rate, "error", err)
			continue
		}
		selectedSampleRate = rate
		break
	}
	if mic == nil {
		return fmt.Errorf("open microphone: %w", err)
	}

	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:       "nova-2",
		Language:    "en-US",
		Punctuate:   true,
		SmartFormat: true,
		Encoding:    "linear16",
		SampleRate:  selectedSampleRate,
		Channels:    1,
	}

	dgClient, err := listen.NewWSUsingCallback(ctx, s.apiKey, cOptions, tOptions, &deepgramCallback{service: s})
	if err != nil {
		return fmt.Errorf("create deepgram client: %w", err)
	}
	if ok := dgClient.Connect(); !ok {
		return fmt.Errorf("connect to deepgram")
	}
	if err := mic.Start(); err != nil {
		dgClient.Stop()
		return fmt.Errorf("start microphone: %w", err)
	}

	s.mic = mic
	s.client = dgClient
	s.started = true

	go func() {
		if err := mic.Stream(dgClient); err != nil {
			s.emit(Event{Type: EventError, Err: fmt.Errorf("mic stream: %w", err)})
		}
	}()

	return nil
}

func (s *DeepgramService) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	mic, client := s.mic, s.client
	s.mu.Unlock()

	_ = mic.Stop()
	client.Stop()
	microphone.Teardown()

	// Vendor callbacks can still fire after client.Stop returns. Every
	// emit re-checks stopped under the lock before touching the channel,
	// so closing it here cannot race a late callback.
	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
	return nil
}

// emit delivers an event unless the session is stopped. Sends never
// block the vendor callback: the channel is buffered and overflow is
// dropped.
func (s *DeepgramService) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	select {
	case s.events <- ev:
	default:
		slog.Warn("voice event dropped", "type", ev.Type)
	}
}

type deepgramCallback struct {
	service *DeepgramService
}

func (c *deepgramCallback) Open(*api.OpenResponse) error {
	c.service.emit(Event{Type: EventCallStarted})
	return nil
}

func (c *deepgramCallback) Message(mr *api.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	sentence := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if sentence == "" {
		return nil
	}

	eventType := EventTranscriptPartial
	if mr.IsFinal {
		eventType = EventTranscriptFinal
	}
	c.service.emit(Event{Type: eventType, Speaker: interview.SpeakerUser, Text: sentence})
	return nil
}

func (c *deepgramCallback) SpeechStarted(*api.SpeechStartedResponse) error {
	c.service.emit(Event{Type: EventSpeechStarted})
	return nil
}

func (c *deepgramCallback) UtteranceEnd(*api.UtteranceEndResponse) error {
	c.service.emit(Event{Type: EventSpeechEnded})
	return nil
}

func (c *deepgramCallback) Close(*api.CloseResponse) error {
	c.service.emit(Event{Type: EventCallEnded})
	return nil
}

func (c *deepgramCallback) Error(er *api.ErrorResponse) error {
	c.service.emit(Event{Type: EventError, Err: fmt.Errorf("deepgram %s: %s", er.ErrCode, er.Description)})
	return nil
}

func (c *deepgramCallback) Metadata(*api.MetadataResponse) error { return nil }

func (c *deepgramCallback) UnhandledEvent([]byte) error { return nil }
