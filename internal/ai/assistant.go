package ai

import "context"

// Completer sends a prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Transcriber converts a speech recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// DocumentParser converts a document into Markdown.
type DocumentParser interface {
	ParseToMarkdown(ctx context.Context, path string) (string, error)
}
