package engine

import (
	"context"

	"mercator-hq/warden/pkg/completion"
)

// Classifier labels text the pattern cascade could not decide. It returns
// the raw model output; the engine parses it with ParseLabel.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (string, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// CompletionClassifier sends text as a standalone prompt, with no history, to
// a completion service configured with classification instructions.
func CompletionClassifier(svc completion.Service) Classifier {
	return ClassifierFunc(func(ctx context.Context, text string) (string, error) {
		result, err := svc.Complete(ctx, text, nil)
		if err != nil {
			return "", err
		}
		return result.Text, nil
	})
}
