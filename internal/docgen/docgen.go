// Package docgen produces a short generated description of a shared
// repository from a sample of its source files, via an external
// generative-text API.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	maxSampleFiles = 5
	maxFileBytes   = 4096
)

var ErrNoFiles = errors.New("no source files to describe")

// SourceFile is one sampled file handed to the generator.
type SourceFile struct {
	Path    string
	Content string
}

type Generator struct {
	client *openai.Client
	model  string
}

// New builds a generator from the configured API key. Callers must not
// construct one when no key is configured; a nil *Generator means the
// feature is off and no outbound call may be attempted.
func New(apiKey, model string) *Generator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Generator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Describe asks the external service for a descriptive document of the
// repository based on the sampled files. One call, no retries.
func (g *Generator) Describe(ctx context.Context, repoName string, files []SourceFile) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write concise technical overviews of software repositories.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(repoName, files),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generating document: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("generating document: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(repoName string, files []SourceFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Describe the repository %q: its purpose, structure and notable implementation details, based on these source files.\n", repoName)

	if len(files) > maxSampleFiles {
		files = files[:maxSampleFiles]
	}
	for _, f := range files {
		content := f.Content
		if len(content) > maxFileBytes {
			content = content[:maxFileBytes]
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", f.Path, content)
	}

	return b.String()
}
