package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/voxscribe/internal/encoder"
	"github.com/leonardotrapani/voxscribe/internal/notify"
	"github.com/leonardotrapani/voxscribe/internal/status"
	"github.com/leonardotrapani/voxscribe/internal/transcriber"
)

// ErrNoService is returned when no credential has been configured yet.
var ErrNoService = errors.New("transcription service not configured")

const credentialMessage = "Transcription failed: the API key was rejected. Check transcription.api_key in the config."

// Router delivers a finished transcript.
type Router interface {
	Route(ctx context.Context, text, audioFilename string) error
}

// StatsRecorder receives successful transcriptions.
type StatsRecorder interface {
	AddTranscription(text string, seconds float64) error
}

type ServiceFactory func(ctx context.Context, config transcriber.Config) (transcriber.Service, error)

type Deps struct {
	Factory  ServiceFactory
	Status   status.Sink
	Notifier notify.Notifier
	Router   Router
	Stats    StatsRecorder
	Prompt   string
}

type Options struct {
	// TrackDuration adds the payload duration to secondsTranscribed.
	TrackDuration bool
}

// Pipeline runs upload, inference and cleanup against the configured
// service. The service and prompt can be swapped while jobs are running;
// each job keeps the pair it started with.
type Pipeline struct {
	factory  ServiceFactory
	status   status.Sink
	notifier notify.Notifier
	router   Router

	mu      sync.RWMutex
	service transcriber.Service
	prompt  string
	stats   StatsRecorder
}

func New(deps Deps) *Pipeline {
	p := &Pipeline{
		factory:  deps.Factory,
		status:   deps.Status,
		notifier: deps.Notifier,
		router:   deps.Router,
		prompt:   deps.Prompt,
		stats:    deps.Stats,
	}
	if p.factory == nil {
		p.factory = transcriber.NewService
	}
	if p.notifier == nil {
		p.notifier = notify.Nop{}
	}
	return p
}

// ReloadCredential replaces the service used by jobs started afterwards. On
// failure no service is left configured.
func (p *Pipeline) ReloadCredential(ctx context.Context, config transcriber.Config) error {
	svc, err := p.factory(ctx, config)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.service = nil
		return fmt.Errorf("reload credential: %w", err)
	}
	p.service = svc
	log.Info().Str("provider", config.Provider).Str("model", config.Model).Msg("Pipeline: transcription service configured")
	return nil
}

// SetService installs svc directly.
func (p *Pipeline) SetService(svc transcriber.Service) {
	p.mu.Lock()
	p.service = svc
	p.mu.Unlock()
}

func (p *Pipeline) SetPrompt(prompt string) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
}

// SetStats replaces the statistics sink; nil disables statistics.
func (p *Pipeline) SetStats(stats StatsRecorder) {
	p.mu.Lock()
	p.stats = stats
	p.mu.Unlock()
}

// Transcribe runs one job. Failures are reported through the notifier
// before being returned, so callers only need the error for bookkeeping.
// Status is Processing for the duration of the call and Ready afterwards.
func (p *Pipeline) Transcribe(ctx context.Context, audio encoder.Audio, audioFilename string, opts Options) (string, error) {
	p.setStatus(status.Processing)
	defer p.setStatus(status.Ready)

	p.mu.RLock()
	svc, prompt, stats := p.service, p.prompt, p.stats
	p.mu.RUnlock()

	jobID := uuid.NewString()
	logger := log.With().Str("job", jobID).Logger()

	if svc == nil {
		p.notifier.Error("Transcription failed: no API key configured")
		return "", ErrNoService
	}

	start := time.Now()
	file, err := svc.Upload(ctx, audio.Data, audio.MIMEType)
	if err != nil {
		logger.Error().Err(err).Msg("Pipeline: upload failed")
		p.reportFailure(err)
		return "", err
	}
	logger.Debug().Str("file", file.Name).Int("bytes", len(audio.Data)).Msg("Pipeline: uploaded")

	defer p.cleanup(ctx, svc, file, logger)

	text, err := svc.Infer(ctx, file, prompt)
	if err != nil {
		logger.Error().Err(err).Msg("Pipeline: inference failed")
		p.reportFailure(err)
		return "", err
	}
	logger.Info().Dur("took", time.Since(start)).Int("chars", len(text)).Msg("Pipeline: transcription complete")

	if text == "" {
		p.notifier.Notify("Transcription returned no text")
		return "", nil
	}

	if stats != nil {
		var seconds float64
		if opts.TrackDuration {
			seconds = encoder.Duration(audio)
		}
		if err := stats.AddTranscription(text, seconds); err != nil {
			logger.Warn().Err(err).Msg("Pipeline: failed to persist statistics")
		}
	}

	if p.router != nil {
		if err := p.router.Route(ctx, text, audioFilename); err != nil {
			logger.Error().Err(err).Msg("Pipeline: routing failed")
			p.notifier.Error("Could not deliver transcript: " + err.Error())
			return text, fmt.Errorf("route transcript: %w", err)
		}
	}
	return text, nil
}

// cleanup deletes the uploaded file once. It runs even when ctx has been
// cancelled and never changes the job outcome.
func (p *Pipeline) cleanup(ctx context.Context, svc transcriber.Service, file transcriber.RemoteFile, logger zerolog.Logger) {
	if err := svc.Delete(context.WithoutCancel(ctx), file); err != nil {
		logger.Warn().Err(err).Str("file", file.Name).Msg("Pipeline: failed to delete uploaded audio")
		p.notifier.Error("Could not delete uploaded audio " + file.Name)
		return
	}
	logger.Debug().Str("file", file.Name).Msg("Pipeline: deleted uploaded audio")
}

func (p *Pipeline) reportFailure(err error) {
	if transcriber.IsCredentialError(err) {
		p.notifier.Error(credentialMessage)
		return
	}
	p.notifier.Error("Transcription failed: " + err.Error())
}

func (p *Pipeline) setStatus(s status.Status) {
	if p.status != nil {
		p.status.SetStatus(s)
	}
}
