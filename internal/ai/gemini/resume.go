package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/utils"
)

//go:embed resume_prompt.md
var resumePrompt string

const pdfMIMEType = "application/pdf"

// ResumeParser converts PDF resumes into Markdown.
type ResumeParser struct {
	generator fileGenerator
	logger    *zap.Logger
}

// NewResumeParser returns a ResumeParser backed by the generator.
func NewResumeParser(generator fileGenerator, log *zap.Logger) *ResumeParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResumeParser{generator: generator, logger: log}
}

// ParseToMarkdown reads a PDF and returns the resume body as Markdown.
func (p *ResumeParser) ParseToMarkdown(ctx context.Context, path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", fmt.Errorf("resume %q is not a pdf", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}

	raw, err := p.generator.GenerateWithFile(ctx, resumePrompt, data, pdfMIMEType)
	if err != nil {
		return "", fmt.Errorf("parse resume: %w", err)
	}

	markdown := utils.StripCodeFence(raw)
	if markdown == "" {
		return "", errors.New("resume parser returned empty document")
	}

	p.logger.Debug("resume parsed", zap.String("path", path), zap.Int("markdown_length", len(markdown)))

	return markdown, nil
}
