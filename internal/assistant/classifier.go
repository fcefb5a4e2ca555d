// Package assistant implements the Philview chat core: intent classification, plan confirmation
// and action dispatch.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/models"
)

// DefaultClassifierTimeout bounds a single model call.
const DefaultClassifierTimeout = 8 * time.Second

// SystemPrompt is the fixed instruction sent with every classification request.
const SystemPrompt = `You are Philip, an in-app agent for Philview.
Always be concise (<=2 sentences) and helpful.
You can call tools to navigate: dashboard, properties, appointments, balance, inquiries, clients, events.
Use logout when asked to sign out.
If no tool is needed, just answer briefly.`

const emptyModelReply = "Let me know what you need next."

// Outcome is the result of classifying one message: Direct, NeedsConfirmation or Reply.
type Outcome interface {
	isOutcome()
}

// Direct is an action to dispatch immediately, with the reply to show.
type Direct struct {
	Action models.Action
	Reply  string
}

// NeedsConfirmation is a plan the user must confirm before anything is dispatched.
type NeedsConfirmation struct {
	Plan models.Plan
}

// Reply is plain text with no action.
type Reply struct {
	Text string
}

func (Direct) isOutcome()            {}
func (NeedsConfirmation) isOutcome() {}
func (Reply) isOutcome()             {}

// TransportErrorKind classifies a failed model call.
type TransportErrorKind string

const (
	TransportUnavailable TransportErrorKind = "unavailable"
	TransportTimeout     TransportErrorKind = "timeout"
	TransportRequest     TransportErrorKind = "request"
	TransportMalformed   TransportErrorKind = "malformed"
)

// ErrModelDisabled is wrapped by the TransportError returned when no model is configured.
var ErrModelDisabled = errors.New("language model not configured")

// TransportError is a failure of the primary classification path.
type TransportError struct {
	Kind TransportErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier transport %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClassifyContext carries the caller context used to phrase replies and resolve plan details.
type ClassifyContext struct {
	Role       models.Role
	SignedIn   bool
	Properties []models.Property
}

// IntentClassifier maps user text to an Outcome. Implementations never fail.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, cctx ClassifyContext) Outcome
}

// Classifier is the default IntentClassifier. With no model configured it always takes the
// keyword path.
type Classifier struct {
	model   genai.ClientInterface
	timeout time.Duration
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithModel sets the tool-calling model used on the primary path.
func WithModel(model genai.ClientInterface) ClassifierOption {
	return func(c *Classifier) { c.model = model }
}

// WithTimeout bounds each model call. Non-positive values keep the default.
func WithTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClassifier creates a Classifier.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{timeout: DefaultClassifierTimeout}
	for _, opt := range opts {
		opt(c)
	}
	slog.Debug("Classifier.NewClassifier: classifier created", "modelEnabled", c.model != nil, "timeout", c.timeout)
	return c
}

// ModelEnabled reports whether a model is configured for the primary path.
func (c *Classifier) ModelEnabled() bool { return c.model != nil }

// Classify detects plans first, then routes the message through the model or the keyword rules.
func (c *Classifier) Classify(ctx context.Context, text string, cctx ClassifyContext) Outcome {
	if plan, ok := DetectPlan(text, cctx.Properties); ok {
		slog.Debug("Classifier.Classify: plan detected", "kind", plan.Kind())
		return NeedsConfirmation{Plan: plan}
	}
	return c.Route(ctx, text, cctx)
}

// Route classifies text into a Direct or Reply outcome without plan detection.
func (c *Classifier) Route(ctx context.Context, text string, cctx ClassifyContext) Outcome {
	out, err := c.primary(ctx, text, cctx)
	return recoverWith(out, err, func(err error) Outcome {
		var te *TransportError
		if errors.As(err, &te) && te.Kind == TransportUnavailable {
			slog.Debug("Classifier.Route: model disabled, using keyword routing")
		} else {
			slog.Warn("Classifier.Route: model call failed, using keyword routing", "error", err)
		}
		return degraded(text, cctx)
	})
}

// recoverWith returns out when err is nil and the degraded outcome otherwise.
func recoverWith(out Outcome, err error, degrade func(error) Outcome) Outcome {
	if err != nil || out == nil {
		return degrade(err)
	}
	return out
}

// degraded is the keyword path: routing rules, then canned answers.
func degraded(text string, cctx ClassifyContext) Outcome {
	if action := FallbackRoute(text); action != nil {
		return Direct{Action: action, Reply: ActionReply(action)}
	}
	return Reply{Text: FAQReply(text, cctx.SignedIn)}
}

// primary asks the model. Every failure is returned as a *TransportError.
func (c *Classifier) primary(ctx context.Context, text string, cctx ClassifyContext) (Outcome, error) {
	if c.model == nil {
		return nil, &TransportError{Kind: TransportUnavailable, Err: ErrModelDisabled}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemPrompt),
		openai.UserMessage(fmt.Sprintf("User (%s): %s", cctx.Role.DisplayName(), text)),
	}
	resp, err := c.model.GenerateWithTools(callCtx, messages, Tools())
	if err != nil {
		switch {
		case errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
			return nil, &TransportError{Kind: TransportTimeout, Err: err}
		case errors.Is(err, genai.ErrNoChoicesReturned):
			return nil, &TransportError{Kind: TransportMalformed, Err: err}
		default:
			return nil, &TransportError{Kind: TransportRequest, Err: err}
		}
	}
	if resp == nil {
		return nil, &TransportError{Kind: TransportMalformed, Err: errors.New("nil response")}
	}

	if len(resp.ToolCalls) > 0 {
		if len(resp.ToolCalls) > 1 {
			slog.Debug("Classifier.primary: multiple tool calls, using the first", "count", len(resp.ToolCalls))
		}
		action, err := ActionFromToolCall(resp.ToolCalls[0])
		if err == nil {
			return Direct{Action: action, Reply: ActionReply(action)}, nil
		}
		slog.Warn("Classifier.primary: rejected tool call", "tool", resp.ToolCalls[0].Function.Name, "error", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		reply = emptyModelReply
	}
	return Reply{Text: reply}, nil
}
