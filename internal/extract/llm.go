package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/versecast/internal/translation"
	"github.com/MrWong99/versecast/pkg/provider/llm"
	"github.com/MrWong99/versecast/pkg/scripture"
)

const (
	defaultMaxTokens = 32

	systemPrompt = `You read speech-to-text transcripts from people asking to hear Bible verses.
Answer with the bare requested value only: no explanation, no quotes, no markdown.
Answer null when the transcript does not contain what is asked for.`

	explicitPromptFormat     = `Extract a Bible quote address from the following text: "%s". Return only the address (e.g., "John 3:16") or null if none is found.`
	continuationPromptFormat = `Given the current Bible verse (%s), determine the next verse based on the following text: "%s". Return only the address (e.g., "John 3:17") or null if none is found.`
	translationPromptFormat  = `Extract the Bible version from the following text: "%s". Return only the version (e.g., "NIV", "KJV") or null if none is found.`
)

var _ Service = (*LLMExtractor)(nil)

// Option configures an [LLMExtractor].
type Option func(*LLMExtractor)

// WithCanonicalizer snaps extracted book names onto canonical spellings.
func WithCanonicalizer(c *scripture.Canonicalizer) Option {
	return func(e *LLMExtractor) { e.canon = c }
}

// WithMaxTokens caps the completion length. Default: 32.
func WithMaxTokens(n int) Option {
	return func(e *LLMExtractor) { e.maxTokens = n }
}

// WithLogger sets the logger used for discarded answers. Default:
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *LLMExtractor) { e.log = l }
}

// LLMExtractor implements [Service] on top of an [llm.Provider]. It is safe
// for concurrent use.
type LLMExtractor struct {
	llm       llm.Provider
	canon     *scripture.Canonicalizer
	maxTokens int
	log       *slog.Logger
}

// New returns an LLMExtractor backed by provider.
func New(provider llm.Provider, opts ...Option) *LLMExtractor {
	e := &LLMExtractor{
		llm:       provider,
		maxTokens: defaultMaxTokens,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExplicitReference implements [Service].
func (e *LLMExtractor) ExplicitReference(ctx context.Context, text string) (scripture.Reference, bool, error) {
	answer, err := e.ask(ctx, fmt.Sprintf(explicitPromptFormat, text))
	if err != nil {
		return scripture.Reference{}, false, fmt.Errorf("extract: explicit reference: %w", err)
	}
	ref, ok := e.reference(answer)
	return ref, ok, nil
}

// Continuation implements [Service].
func (e *LLMExtractor) Continuation(ctx context.Context, current scripture.Reference, text string) (scripture.Reference, bool, error) {
	answer, err := e.ask(ctx, fmt.Sprintf(continuationPromptFormat, current, text))
	if err != nil {
		return scripture.Reference{}, false, fmt.Errorf("extract: continuation: %w", err)
	}
	ref, ok := e.reference(answer)
	return ref, ok, nil
}

// Translation implements [Service]. Codes outside the supported set are
// discarded.
func (e *LLMExtractor) Translation(ctx context.Context, text string) (string, bool, error) {
	answer, err := e.ask(ctx, fmt.Sprintf(translationPromptFormat, text))
	if err != nil {
		return "", false, fmt.Errorf("extract: translation: %w", err)
	}
	answer, ok := normalizeAnswer(answer)
	if !ok {
		return "", false, nil
	}
	code, err := translation.Parse(answer)
	if err != nil {
		e.log.Warn("extract: discarding unsupported translation", "answer", answer)
		return "", false, nil
	}
	return code, true, nil
}

func (e *LLMExtractor) ask(ctx context.Context, prompt string) (string, error) {
	resp, err := e.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature:  llm.Float(0),
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}

// reference normalises and parses a model answer. Malformed answers are
// logged and reported as none.
func (e *LLMExtractor) reference(answer string) (scripture.Reference, bool) {
	addr, ok := normalizeAnswer(answer)
	if !ok {
		return scripture.Reference{}, false
	}
	ref, err := scripture.Parse(firstVerse(addr))
	if err != nil {
		e.log.Warn("extract: discarding malformed reference", "answer", answer, "error", err)
		return scripture.Reference{}, false
	}
	if e.canon != nil {
		ref = e.canon.CanonicalRef(ref)
	}
	return ref, true
}
