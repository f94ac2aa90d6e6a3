package diagnostics

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Fallback texts returned when the LLM is unreachable or returns an
// empty answer. The student always sees isiXhosa, never a raw stack
// trace or an English apology.
const (
	translateFallbackPrefix = "Impazamo: Ayikwazanga ukuguqulela le ngxelo ("
	translateFallbackSuffix = ")"

	// TimeoutFallback is the offline explanation for a killed runaway.
	TimeoutFallback = "Impazamo: Ikhowudi yakho ithathe ixesha elide kakhulu ukugqiba. " +
		"Khangela ukuba i-loop yakho iza kuphela na."
)

const translateSystem = `You are a programming tutor for beginners who speak isiXhosa.
You will be given a Python error message. Explain it in simple isiXhosa that a
first-time programmer can understand. Keep the line number exactly as given.
Respond ONLY in isiXhosa. Do not include English. Do not include the original
error text. One or two short sentences.`

const timeoutSystem = `You are a programming tutor for beginners who speak isiXhosa.
You will be given a short program that ran longer than its time limit, most
likely because of a loop that never terminates. Point at the suspect loop and
say, in simple isiXhosa, what is probably missing (for example a counter that
never changes). Respond ONLY in isiXhosa. Two short sentences at most.`

// Provider produces a completion for a system prompt and a user text.
// The production implementation talks to Gemini; tests use a stub.
type Provider interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeminiProvider calls the Gemini API through the google genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider bound to one model.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
		})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// Translator turns Python diagnostics into student-facing isiXhosa.
type Translator struct {
	provider Provider
	log      *zap.Logger
}

func NewTranslator(provider Provider, log *zap.Logger) *Translator {
	return &Translator{provider: provider, log: log}
}

// TranslateError remaps line numbers in a stderr text through lineMap
// and paraphrases it into isiXhosa. On any provider failure the
// remapped original is wrapped in the fallback envelope so the line
// information survives. A NameError that looks like a keyword typo
// gets a suggestion appended.
func (t *Translator) TranslateError(ctx context.Context, stderr string, lineMap map[int]int) string {
	remapped := strings.TrimSpace(RemapLines(stderr, lineMap))
	if remapped == "" {
		return ""
	}

	out, err := t.provider.Generate(ctx, translateSystem, remapped)
	if err != nil {
		t.log.Warn("error translation failed, using fallback", zap.Error(err))
		out = translateFallbackPrefix + lastLine(remapped) + translateFallbackSuffix
	}

	if sugg, ok := KeywordHint(remapped); ok {
		out += fmt.Sprintf("\nIngaba ubufuna ukubhala '%s'?", sugg)
	}
	return out
}

// ExplainTimeout asks the provider why the given source probably ran
// forever. Falls back to a generic isiXhosa timeout message.
func (t *Translator) ExplainTimeout(ctx context.Context, source string) string {
	out, err := t.provider.Generate(ctx, timeoutSystem, source)
	if err != nil {
		t.log.Warn("timeout explanation failed, using fallback", zap.Error(err))
		return TimeoutFallback
	}
	return out
}

// lastLine returns the final non-blank line of a text. Python tracebacks
// put the actual error there.
func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
