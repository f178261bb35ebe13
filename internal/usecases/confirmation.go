package usecases

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/telemetry"
	"github.com/cleitonmarx/symbiont/depend"
	"go.yaml.in/yaml/v3"
)

//go:embed prompts/confirmations.yml
var confirmationPromptsFile embed.FS

// ConfirmationPrompts renders the human-readable question shown for a
// pending mutating tool call. Per-tool templates come from an embedded
// catalog; unknown tools get the generic fallback.
type ConfirmationPrompts struct {
	fallback  *template.Template
	templates map[string]*template.Template
}

type confirmationPromptsSpec struct {
	Fallback  string            `yaml:"fallback"`
	Templates map[string]string `yaml:"templates"`
}

// LoadConfirmationPrompts parses the embedded template catalog.
func LoadConfirmationPrompts() (ConfirmationPrompts, error) {
	raw, err := confirmationPromptsFile.ReadFile("prompts/confirmations.yml")
	if err != nil {
		return ConfirmationPrompts{}, fmt.Errorf("read confirmation prompts: %w", err)
	}

	var spec confirmationPromptsSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return ConfirmationPrompts{}, fmt.Errorf("parse confirmation prompts: %w", err)
	}

	fallback, err := template.New("fallback").Parse(spec.Fallback)
	if err != nil {
		return ConfirmationPrompts{}, fmt.Errorf("parse fallback template: %w", err)
	}

	templates := make(map[string]*template.Template, len(spec.Templates))
	for name, text := range spec.Templates {
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return ConfirmationPrompts{}, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return ConfirmationPrompts{fallback: fallback, templates: templates}, nil
}

// Describe renders the confirmation question for one tool call.
func (p ConfirmationPrompts) Describe(call domain.ToolCall) string {
	tmpl, ok := p.templates[call.Name]
	if !ok {
		tmpl = p.fallback
	}

	data := struct {
		Tool string
		Args map[string]any
	}{Tool: call.Name, Args: call.Arguments}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return fmt.Sprintf("Run %s with the provided arguments?", call.Name)
	}
	return sb.String()
}

const classifyToolName = "classify_confirmation"

// classifyConfirmationTool is the fixed tool definition used for forced
// intent classification. It is never executed as a domain action.
func classifyConfirmationTool() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        classifyToolName,
		Description: "Classify the user's reply to a pending confirmation prompt.",
		Parameters: domain.Object("", map[string]*domain.SchemaNode{
			"intent":         domain.Enum("What the user wants to do with the pending action", "confirm", "reject", "correct"),
			"correctedValue": domain.String("The corrected value, when the user adjusts the proposed action").AsOptional(),
			"correctedUnit":  domain.String("The corrected unit, when the user adjusts the proposed action").AsOptional(),
			"confidence":     domain.Number("Classification confidence between 0 and 1"),
			"reasoning":      domain.String("Short explanation of the classification").AsOptional(),
		}),
	}
}

const classifySystemPrompt = "You classify replies to a pending confirmation prompt. " +
	"The user was asked: %q. Interpret their reply strictly as an answer to " +
	"that question and call classify_confirmation exactly once."

// ConfirmationClassifier interprets a free-text reply to a pending
// confirmation as a structured intent.
type ConfirmationClassifier interface {
	Classify(ctx context.Context, pendingDescription, userReply string) (domain.ConfirmationIntent, error)
}

// ConfirmationClassifierImpl implements ConfirmationClassifier with a
// forced tool-choice call: the model cannot answer in plain text, so the
// classification always arrives through the structured channel.
type ConfirmationClassifierImpl struct {
	llmClient domain.LLMClient
}

// NewConfirmationClassifierImpl creates a new instance of ConfirmationClassifierImpl.
func NewConfirmationClassifierImpl(llmClient domain.LLMClient) ConfirmationClassifierImpl {
	return ConfirmationClassifierImpl{llmClient: llmClient}
}

// Classify implements ConfirmationClassifier.
func (c ConfirmationClassifierImpl) Classify(ctx context.Context, pendingDescription, userReply string) (domain.ConfirmationIntent, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	resp, err := c.llmClient.ChatWithTools(spanCtx, domain.ChatWithToolsRequest{
		Messages: []domain.Message{
			{Role: domain.MessageRole_User, Content: userReply},
		},
		SystemPrompt: fmt.Sprintf(classifySystemPrompt, pendingDescription),
		Tools:        []domain.ToolDefinition{classifyConfirmationTool()},
		ToolChoice:   domain.ForcedToolChoice(classifyToolName),
	})
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ConfirmationIntent{}, err
	}

	intent, err := parseConfirmationIntent(resp.ToolCalls)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ConfirmationIntent{}, err
	}
	return intent, nil
}

func parseConfirmationIntent(calls []domain.ToolCall) (domain.ConfirmationIntent, error) {
	var call *domain.ToolCall
	for i := range calls {
		if calls[i].Name == classifyToolName {
			call = &calls[i]
			break
		}
	}
	if call == nil {
		return domain.ConfirmationIntent{}, fmt.Errorf("no %s tool call in classification response", classifyToolName)
	}

	b, err := json.Marshal(call.Arguments)
	if err != nil {
		return domain.ConfirmationIntent{}, fmt.Errorf("marshal classification arguments: %w", err)
	}

	var parsed struct {
		Intent         string  `json:"intent"`
		CorrectedValue string  `json:"correctedValue"`
		CorrectedUnit  string  `json:"correctedUnit"`
		Confidence     float64 `json:"confidence"`
		Reasoning      string  `json:"reasoning"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil {
		return domain.ConfirmationIntent{}, fmt.Errorf("parse classification arguments: %w", err)
	}

	kind := domain.ConfirmationIntentKind(parsed.Intent)
	switch kind {
	case domain.ConfirmationIntent_Confirm, domain.ConfirmationIntent_Reject, domain.ConfirmationIntent_Correct:
	default:
		return domain.ConfirmationIntent{}, fmt.Errorf("unexpected confirmation intent %q", parsed.Intent)
	}

	return domain.ConfirmationIntent{
		Intent:         kind,
		CorrectedValue: parsed.CorrectedValue,
		CorrectedUnit:  parsed.CorrectedUnit,
		Confidence:     parsed.Confidence,
		Reasoning:      parsed.Reasoning,
	}, nil
}

// ResolvePending applies a classified intent to a pending confirmation.
// The boolean reports whether the pending call was resolved: a "correct"
// intent leaves it unresolved so the caller can re-issue an adjusted call.
func ResolvePending(ctx context.Context, pending *domain.PendingToolConfirmation, intent domain.ConfirmationIntent) (domain.ToolExecutionResult, bool, error) {
	switch intent.Intent {
	case domain.ConfirmationIntent_Confirm:
		result, err := pending.Confirm(ctx)
		return result, true, err
	case domain.ConfirmationIntent_Reject:
		return pending.Reject(intent.Reasoning), true, nil
	default:
		return domain.ToolExecutionResult{}, false, nil
	}
}

// InitConfirmationClassifier is the initializer for the confirmation classifier.
type InitConfirmationClassifier struct {
	LLMClient domain.LLMClient `resolve:""`
}

// Initialize registers the ConfirmationClassifier in the dependency container.
func (i InitConfirmationClassifier) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register[ConfirmationClassifier](NewConfirmationClassifierImpl(i.LLMClient))
	return ctx, nil
}
