package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
)

const (
	ContinuePrompt = "Continue exactly from where you stopped. Do not repeat previous text. Just continue."

	DefaultMaxContinuations  = 8
	DefaultContinuationDelay = time.Second

	// Replies under this many words are too short to judge.
	cutoffMinWords = 30
	// Continuation chunks shorter than this many characters end the loop.
	minContinuationChars = 20
	cutoffTerminators    = `.?!}>)];:"'`
)

// LooksCutoff reports whether text appears to have been truncated upstream.
func LooksCutoff(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return true
	}
	if strings.Contains(s, "</html>") || strings.Contains(s, "</body>") {
		return false
	}
	if len(strings.Fields(s)) < cutoffMinWords {
		return false
	}
	if strings.Count(s, "```")%2 == 1 {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	return !strings.ContainsRune(cutoffTerminators, last)
}

type conversationalClient interface {
	Converse(ctx context.Context, modelName, msg string, history []model.Turn) (string, error)
}

// Continuation assembles one reply from an upstream without long-output
// support by asking it to continue while the reply looks truncated.
type Continuation struct {
	client           conversationalClient
	maxContinuations int
	delay            time.Duration
	sleep            func(ctx context.Context, d time.Duration)
}

func NewContinuation(client conversationalClient, maxContinuations int, delay time.Duration) *Continuation {
	return &Continuation{
		client:           client,
		maxContinuations: maxContinuations,
		delay:            delay,
		sleep:            sleepContext,
	}
}

// Run returns an error only when the first call fails. Failed or
// unproductive continuations end the loop with the text gathered so far.
func (c *Continuation) Run(ctx context.Context, modelName, msg string) (string, error) {
	logger := observability.WithFields(ctx, "model", modelName)

	history := []model.Turn{model.NewUserTurn(msg)}
	reply, err := c.client.Converse(ctx, modelName, msg, history)
	if err != nil {
		return "", err
	}
	fullReply := reply
	history = append(history, model.NewAssistantTurn(reply))

	for attempt := 1; attempt <= c.maxContinuations; attempt++ {
		if !LooksCutoff(fullReply) || strings.Contains(strings.ToLower(fullReply), "</html>") {
			break
		}
		logger.Info("auto-continuing reply", "attempt", attempt, "max", c.maxContinuations)

		history = append(history, model.NewUserTurn(ContinuePrompt))
		c.sleep(ctx, c.delay)

		chunk, err := c.client.Converse(ctx, modelName, ContinuePrompt, history)
		if err != nil {
			logger.Warn("continuation failed, returning partial reply", "attempt", attempt, "error", err)
			break
		}
		if utf8.RuneCountInString(chunk) < minContinuationChars {
			logger.Info("continuation unproductive, stopping", "attempt", attempt, "chars", utf8.RuneCountInString(chunk))
			break
		}
		fullReply += "\n" + chunk
		history = append(history, model.NewAssistantTurn(chunk))
	}
	return fullReply, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
