package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Responder turns a Provider into a reply source that never fails:
// provider errors, panics and empty replies become fixed messages.
type Responder struct {
	provider Provider
	model    string
	timeout  time.Duration
}

// NewResponder wraps provider. A zero timeout means no deadline.
func NewResponder(provider Provider, model string, timeout time.Duration) *Responder {
	return &Responder{
		provider: provider,
		model:    model,
		timeout:  timeout,
	}
}

// Generate returns the assistant reply text for prompt
func (r *Responder) Generate(ctx context.Context, prompt string, history []Turn, image *Image) string {
	text, err := r.generate(ctx, Request{Prompt: prompt, History: history, Image: image})
	if err != nil {
		log.Error().Err(err).Str("provider", r.provider.Name()).Msg("Responder failed")
		return BusyMessage
	}

	text = CleanReply(text)
	if text == "" {
		return EmptyReplyMessage
	}
	return text
}

func (r *Responder) generate(ctx context.Context, req Request) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("provider panic: %v", rec)
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.provider.Generate(ctx, req, r.model)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}

	log.Debug().
		Str("provider", r.provider.Name()).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("Reply generated")

	return resp.Text, nil
}
