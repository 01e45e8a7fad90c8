// Package content holds the user-facing copy of the bot: greetings, progress phrases, upsell texts and button labels.
package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"github.com/BurntSushi/toml"
)

//go:embed copy.toml
var defaultCopy string

// Reply action variants for idea presentations
const (
	ReplyActionsIdeas = "ideas"
	ReplyActionsLink  = "link"
)

type Content struct {
	Welcome  string          `toml:"welcome"`
	Apology  string          `toml:"apology"`
	Thinking ThinkingContent `toml:"thinking"`
	Ideas    IdeasContent    `toml:"ideas"`
	Sales    SalesContent    `toml:"sales"`
	FollowUp FollowUpContent `toml:"follow_up"`
}

type ThinkingContent struct {
	Intro   string   `toml:"intro"`
	Phrases []string `toml:"phrases"`
}

type IdeasContent struct {
	Marker       string `toml:"marker"`
	ReplyActions string `toml:"reply_actions"`
	ButtonCount  int    `toml:"button_count"`
	ButtonLabel  string `toml:"button_label"`
	Prompt       string `toml:"prompt"`
	LinkLabel    string `toml:"link_label"`
	LinkURL      string `toml:"link_url"`
}

type SalesContent struct {
	Text        string `toml:"text"`
	ButtonLabel string `toml:"button_label"`
	ButtonURL   string `toml:"button_url"`
}

type FollowUpContent struct {
	Template string `toml:"template"`
}

// Default returns the built-in copy
func Default() (*Content, error) {
	var c Content
	if _, err := toml.Decode(defaultCopy, &c); err != nil {
		return nil, fmt.Errorf("parsing built-in copy: %w", err)
	}
	return &c, nil
}

// Load returns the built-in copy overlaid with the keys present in the TOML file at path. An empty path returns the
// built-in copy.
func Load(path string) (*Content, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading copy file: %w", err)
		}
		if _, err := toml.Decode(string(data), c); err != nil {
			return nil, fmt.Errorf("parsing copy file: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating copy: %w", err)
	}
	return c, nil
}

// Validate checks that every text the bot sends is present
func (c *Content) Validate() error {
	if c.Welcome == "" {
		return fmt.Errorf("welcome is required")
	}
	if c.Apology == "" {
		return fmt.Errorf("apology is required")
	}
	if c.Thinking.Intro == "" {
		return fmt.Errorf("thinking.intro is required")
	}
	if len(c.Thinking.Phrases) == 0 {
		return fmt.Errorf("thinking.phrases must not be empty")
	}
	switch c.Ideas.ReplyActions {
	case ReplyActionsIdeas:
		if c.Ideas.ButtonCount < 1 || c.Ideas.ButtonCount > 8 {
			return fmt.Errorf("ideas.button_count must be between 1 and 8")
		}
	case ReplyActionsLink:
		if c.Ideas.LinkURL == "" {
			return fmt.Errorf("ideas.link_url is required when ideas.reply_actions is %q", ReplyActionsLink)
		}
	default:
		return fmt.Errorf("ideas.reply_actions must be %q or %q", ReplyActionsIdeas, ReplyActionsLink)
	}
	if c.Sales.Text == "" || c.Sales.ButtonURL == "" {
		return fmt.Errorf("sales.text and sales.button_url are required")
	}
	if _, err := template.New("follow_up").Parse(c.FollowUp.Template); err != nil {
		return fmt.Errorf("follow_up.template: %w", err)
	}
	return nil
}

// IdeaButtonLabel returns the label of the button selecting idea n
func (c *Content) IdeaButtonLabel(n int) string {
	return fmt.Sprintf(c.Ideas.ButtonLabel, n)
}

// IdeaPrompt returns the user message synthesized when idea n is selected
func (c *Content) IdeaPrompt(n int) string {
	return fmt.Sprintf(c.Ideas.Prompt, n)
}

type followUpData struct {
	LiveStreamURL string
}

// RenderFollowUp renders the delayed follow-up message
func (c *Content) RenderFollowUp(liveStreamURL string) (string, error) {
	tmpl, err := template.New("follow_up").Parse(c.FollowUp.Template)
	if err != nil {
		return "", fmt.Errorf("failed to parse follow-up template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, followUpData{LiveStreamURL: liveStreamURL}); err != nil {
		return "", fmt.Errorf("failed to render follow-up template: %w", err)
	}
	return buf.String(), nil
}
