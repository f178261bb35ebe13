// Package console hosts an interactive chat session on stdin/stdout. It is
// the reference inbound surface of the engine; real hosts embed the tool
// loop behind their own transport.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/tools"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/usecases"
	"github.com/google/uuid"
)

const systemPrompt = "You are a health tracking assistant. Use the available " +
	"tools to read and record the user's body metrics. Ask for missing data " +
	"instead of guessing."

// ChatSession is a runnable that drives one conversation over stdin.
type ChatSession struct {
	Logger     *log.Logger                     `resolve:""`
	Loop       usecases.ToolLoop               `resolve:""`
	Classifier usecases.ConfirmationClassifier `resolve:""`
	Input      io.Reader
	Output     io.Writer
}

// Run starts the interactive session and blocks until stdin closes or the
// context is cancelled.
func (s ChatSession) Run(ctx context.Context) error {
	if s.Input == nil {
		s.Input = os.Stdin
	}
	if s.Output == nil {
		s.Output = os.Stdout
	}

	execCtx := domain.ToolExecutionContext{
		UserID:         "console",
		ConversationID: uuid.New().String(),
	}

	var history []domain.Message
	var pending *domain.PendingToolConfirmation

	fmt.Fprintln(s.Output, "Chat started. Press Ctrl+D to exit.")

	scanner := bufio.NewScanner(s.Input)
	for {
		fmt.Fprint(s.Output, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if pending != nil {
			history, pending = s.resolvePending(ctx, pending, input, history, execCtx)
			continue
		}

		history = append(history, domain.Message{Role: domain.MessageRole_User, Content: input})

		result, err := s.Loop.Run(ctx, usecases.ToolLoopRequest{
			Messages: history,
			Tools:    tools.All(),
			ExecCtx:  execCtx,
		}, usecases.WithSystemPrompt(systemPrompt))
		if err != nil {
			var maxIterErr *domain.MaxIterationsErr
			if errors.As(err, &maxIterErr) {
				fmt.Fprintln(s.Output, "Sorry, I could not complete that request.")
				continue
			}
			return err
		}

		history = result.Messages
		if result.Pending != nil {
			pending = result.Pending
			fmt.Fprintln(s.Output, pending.Description)
			continue
		}

		fmt.Fprintln(s.Output, result.Content)
	}
}

// resolvePending classifies the reply to an open confirmation and either
// executes, declines, or asks again with corrected arguments.
func (s ChatSession) resolvePending(
	ctx context.Context,
	pending *domain.PendingToolConfirmation,
	input string,
	history []domain.Message,
	execCtx domain.ToolExecutionContext,
) ([]domain.Message, *domain.PendingToolConfirmation) {
	intent, err := s.Classifier.Classify(ctx, pending.Description, input)
	if err != nil {
		s.Logger.Printf("confirmation classification failed: %v", err)
		fmt.Fprintln(s.Output, "Sorry, I did not understand. "+pending.Description)
		return history, pending
	}

	result, resolved, err := usecases.ResolvePending(ctx, pending, intent)
	if err != nil {
		s.Logger.Printf("confirmation resolution failed: %v", err)
		return history, nil
	}

	if !resolved {
		// The user corrected the proposal. The suspended call still needs a
		// tool message closing its id before the conversation moves on;
		// otherwise the next provider call rejects the history.
		history = append(history, domain.ToolMessage(pending.ToolCall.ID, "Error: superseded by user correction"))
		correction := fmt.Sprintf("%s (user correction: %s %s)", input, intent.CorrectedValue, intent.CorrectedUnit)
		history = append(history, domain.Message{Role: domain.MessageRole_User, Content: correction})
		return s.runCorrected(ctx, history, execCtx)
	}

	content := result.Content
	if !result.Success {
		content = "Error: " + result.Error
	}
	history = append(history, domain.ToolMessage(pending.ToolCall.ID, content))

	if result.Success {
		fmt.Fprintln(s.Output, "Done. "+result.Content)
	} else {
		fmt.Fprintln(s.Output, "Cancelled: "+result.Error)
	}
	return history, nil
}

func (s ChatSession) runCorrected(ctx context.Context, history []domain.Message, execCtx domain.ToolExecutionContext) ([]domain.Message, *domain.PendingToolConfirmation) {
	result, err := s.Loop.Run(ctx, usecases.ToolLoopRequest{
		Messages: history,
		Tools:    tools.All(),
		ExecCtx:  execCtx,
	}, usecases.WithSystemPrompt(systemPrompt))
	if err != nil {
		s.Logger.Printf("corrected run failed: %v", err)
		return history, nil
	}

	if result.Pending != nil {
		fmt.Fprintln(s.Output, result.Pending.Description)
		return result.Messages, result.Pending
	}

	fmt.Fprintln(s.Output, result.Content)
	return result.Messages, nil
}
