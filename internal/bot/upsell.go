package bot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vibecode/ideabot/internal/content"
	"github.com/vibecode/ideabot/internal/task"
)

// DefaultFollowUpDelay is how long after an idea presentation the follow-up message is sent
const DefaultFollowUpDelay = time.Hour

// Scheduler runs deferred one-shot jobs
type Scheduler interface {
	Schedule(job task.Job, delay time.Duration) (string, error)
}

// upsell presents idea replies: a sales image, the reply with its actions, a promotional block with a call to
// action, and a follow-up message scheduled for later
type upsell struct {
	messenger     Messenger
	scheduler     Scheduler
	content       *content.Content
	imagePath     string
	liveStreamURL string
	followUpDelay time.Duration
}

func (u *upsell) present(ctx context.Context, chatID int64, replyText string) error {
	if _, err := os.Stat(u.imagePath); err != nil {
		return fmt.Errorf("failed to locate upsell image: %w", err)
	}
	if err := u.messenger.SendImage(ctx, chatID, u.imagePath); err != nil {
		return fmt.Errorf("failed to send upsell image: %w", err)
	}

	reply := OutgoingText{Text: replyText, Format: FormatHTML, Actions: u.replyActions()}
	if err := sendWithFallback(ctx, u.messenger, chatID, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	sales := OutgoingText{
		Text:    u.content.Sales.Text,
		Format:  FormatHTML,
		Actions: []Action{{Label: u.content.Sales.ButtonLabel, URL: u.content.Sales.ButtonURL}},
	}
	if _, err := u.messenger.SendText(ctx, chatID, sales); err != nil {
		return fmt.Errorf("failed to send sales message: %w", err)
	}

	if err := u.scheduleFollowUp(chatID); err != nil {
		return fmt.Errorf("failed to schedule follow-up: %w", err)
	}
	return nil
}

func (u *upsell) replyActions() []Action {
	if u.content.Ideas.ReplyActions == content.ReplyActionsLink {
		return []Action{{Label: u.content.Ideas.LinkLabel, URL: u.content.Ideas.LinkURL}}
	}
	actions := make([]Action, 0, u.content.Ideas.ButtonCount)
	for n := 1; n <= u.content.Ideas.ButtonCount; n++ {
		actions = append(actions, Action{Label: u.content.IdeaButtonLabel(n), Data: ideaActionData(n)})
	}
	return actions
}

func (u *upsell) scheduleFollowUp(chatID int64) error {
	text, err := u.content.RenderFollowUp(u.liveStreamURL)
	if err != nil {
		return err
	}
	_, err = u.scheduler.Schedule(task.Job{
		Name:           "follow-up",
		ConversationID: chatID,
		Run: func(ctx context.Context) error {
			_, err := u.messenger.SendText(ctx, chatID, OutgoingText{Text: text, Format: FormatPlain})
			return err
		},
	}, u.followUpDelay)
	return err
}
