package completion

import (
	"context"
	"fmt"
	"log"

	"github.com/Manjussha/insightlab/internal/proxy"
	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// Status strings reported alongside an Outcome.
const (
	StatusOK          = "Token probabilities from the model."
	StatusNoLogprobs  = "Model returned no token probabilities; simulated from the completion."
	StatusMalformed   = "Model response could not be read; simulated from the prompt."
	StatusUnavailable = "Model backend unavailable; simulated from the prompt."
)

// Fallback reasons, used as metric labels and webhook payload.
const (
	ReasonNoLogprobs  = "no_logprobs"
	ReasonMalformed   = "malformed"
	ReasonUnavailable = "unavailable"
)

// EventFallback is the notification fired when a completion degrades to the simulator.
const EventFallback = "completion.fallback"

// Backend produces a raw upstream completion body.
type Backend interface {
	Complete(ctx context.Context, req proxy.Request) ([]byte, error)
}

// Recorder receives completion metrics.
type Recorder interface {
	RecordCompletion(source string)
	RecordFallback(reason string)
}

// Notifier can send a notification event.
type Notifier interface {
	Send(event string, payload interface{})
}

// Broadcaster pushes realtime dashboard events.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// LogWriter persists operational log lines.
type LogWriter interface {
	WriteLog(level, message string)
}

// Service runs completions against the backend chain and never fails:
// every error path ends in a simulated sequence.
type Service struct {
	backend  Backend
	recorder Recorder
	notify   Notifier
	hub      Broadcaster
	logs     LogWriter
}

// Option configures a Service.
type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notify = n } }
func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.hub = b } }
func WithLogWriter(w LogWriter) Option { return func(s *Service) { s.logs = w } }

// NewService creates a Service on top of backend.
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fallbackEvent is the payload of EventFallback.
type fallbackEvent struct {
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

// Complete asks the backend for a completion of req.Prompt and parses it.
func (s *Service) Complete(ctx context.Context, req proxy.Request) Outcome {
	raw, err := s.backend.Complete(ctx, req)
	if err != nil {
		return s.fallback(req.Prompt, ReasonUnavailable, StatusUnavailable, err)
	}

	res, err := Parse(raw)
	if err != nil {
		return s.fallback(req.Prompt, ReasonMalformed, StatusMalformed, err)
	}

	out := Outcome{Result: res, Status: StatusOK}
	if res.Source == SourceSimulated {
		out.Status = StatusNoLogprobs
		out.Fallback = true
		s.recordFallback(ReasonNoLogprobs, nil)
	}
	s.finish(out)
	return out
}

func (s *Service) fallback(prompt, reason, status string, cause error) Outcome {
	out := Outcome{
		Result:   Result{Tokens: tokenizer.Simulate(prompt), Source: SourceSimulated},
		Status:   status,
		Fallback: true,
	}
	s.recordFallback(reason, cause)
	s.finish(out)
	return out
}

func (s *Service) recordFallback(reason string, cause error) {
	ev := fallbackEvent{Reason: reason}
	msg := fmt.Sprintf("completion fallback (%s)", reason)
	if cause != nil {
		ev.Error = cause.Error()
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	log.Printf("completion.Complete: %s", msg)
	if s.logs != nil {
		s.logs.WriteLog("warn", msg)
	}
	if s.recorder != nil {
		s.recorder.RecordFallback(reason)
	}
	if s.notify != nil {
		s.notify.Send(EventFallback, ev)
	}
}

func (s *Service) finish(out Outcome) {
	if s.recorder != nil {
		s.recorder.RecordCompletion(string(out.Source))
	}
	if s.hub != nil {
		s.hub.Broadcast("completion", out)
	}
}
