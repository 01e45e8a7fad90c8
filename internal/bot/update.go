package bot

import (
	"strconv"
	"strings"
)

// UpdateKind distinguishes inbound updates
type UpdateKind int

const (
	// UpdateText is a free-text message
	UpdateText UpdateKind = iota
	// UpdateStart is the start/reset command
	UpdateStart
	// UpdateSelection is a press on a Data action
	UpdateSelection
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStart:
		return "start"
	case UpdateSelection:
		return "selection"
	default:
		return "text"
	}
}

// User identifies the person behind an update
type User struct {
	ID       int64
	Username string // May be empty
}

// Update is an inbound event from the chat platform
type Update struct {
	ID         int
	Kind       UpdateKind
	ChatID     int64
	User       User
	Text       string // Message text for UpdateText
	CallbackID string // Set for UpdateSelection
	Data       string // Action payload for UpdateSelection
}

const ideaActionPrefix = "idea_"

// ideaActionData returns the payload of the action selecting idea n
func ideaActionData(n int) string {
	return ideaActionPrefix + strconv.Itoa(n)
}

// parseIdeaSelection returns the idea number carried by an action payload
func parseIdeaSelection(data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, ideaActionPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
