package battle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"arena-battle-system/models"
)

const (
	DefaultNarrativeTimeout = 3 * time.Second
	maxNarrativeRunes       = 280
)

var errInvalidNarrative = errors.New("invalid narrative text")

// NarrativeContext is the structured input handed to a Narrator.
type NarrativeContext struct {
	Kind         models.EventType
	Stage        Stage
	Round        int
	VictimName   string
	AttackerName string // empty when the arena did it
}

// Narrator generates flavour text. Implementations must honour ctx.
type Narrator interface {
	Generate(ctx context.Context, nc NarrativeContext) (string, error)
}

// Narration resolves event messages: the provider first, then the pool.
type Narration struct {
	Provider Narrator // optional
	Pool     *TemplatePool
	Timeout  time.Duration
	Sampler  Sampler
}

// Resolve returns the message for nc and whether the provider produced it.
// It returns within Timeout even if the provider ignores cancellation.
func (n *Narration) Resolve(ctx context.Context, nc NarrativeContext) (string, bool) {
	if n.Provider != nil {
		text, err := n.generate(ctx, nc)
		if err == nil {
			return text, true
		}
		log.Printf("[Narrative] ⚠️ %s round %d falling back to template: %v", nc.Kind, nc.Round, err)
	}
	return n.fallback(nc), false
}

func (n *Narration) generate(ctx context.Context, nc NarrativeContext) (string, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultNarrativeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := n.Provider.Generate(ctx, nc)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("narrative provider: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("narrative provider: %w", r.err)
		}
		return cleanNarrative(r.text, nc)
	}
}

// cleanNarrative trims provider output and rejects text that is empty, too
// long, or still carries unresolved braces after substitution.
func cleanNarrative(text string, nc NarrativeContext) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'`")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty", errInvalidNarrative)
	}
	if utf8.RuneCountInString(text) > maxNarrativeRunes {
		return "", fmt.Errorf("%w: %d runes", errInvalidNarrative, utf8.RuneCountInString(text))
	}
	out := Render(text, nc.VictimName, nc.AttackerName)
	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("%w: unresolved placeholder", errInvalidNarrative)
	}
	return out, nil
}

func (n *Narration) fallback(nc NarrativeContext) string {
	pool := n.Pool
	if pool == nil {
		pool = DefaultTemplates()
	}
	return Render(pool.Pick(nc.Kind, nc.Stage, n.Sampler), nc.VictimName, nc.AttackerName)
}
