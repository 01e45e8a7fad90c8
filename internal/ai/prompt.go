package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed system_prompt.md
var systemPrompt string

// LoadSystemPrompt returns the system prompt read from path, or the built-in prompt if path is empty
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return systemPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file '%s' is empty", path)
	}
	return prompt, nil
}
