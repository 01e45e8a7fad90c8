package ai

import "strings"

// ReplyKind tags a completion reply with the presentation it needs
type ReplyKind int

const (
	// ReplyPlain is an ordinary conversational reply
	ReplyPlain ReplyKind = iota
	// ReplyIdeaPresentation is a reply presenting a list of project ideas, which triggers the upsell flow
	ReplyIdeaPresentation
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyIdeaPresentation:
		return "idea-presentation"
	default:
		return "plain"
	}
}

// Reply is a classified completion reply
type Reply struct {
	Text string
	Kind ReplyKind
}

// ParseReply classifies raw reply text. A reply containing marker is an idea presentation. An empty marker never
// matches.
func ParseReply(text string, marker string) Reply {
	kind := ReplyPlain
	if marker != "" && strings.Contains(text, marker) {
		kind = ReplyIdeaPresentation
	}
	return Reply{Text: text, Kind: kind}
}
