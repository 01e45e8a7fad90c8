package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vibecode/ideabot/internal/ai"
	"github.com/vibecode/ideabot/internal/content"
	"github.com/vibecode/ideabot/internal/task"
)

var errHTMLRejected = errors.New("Bad Request: can't parse entities")

type event struct {
	op      string // send, image, edit, delete, typing, callback
	chatID  int64
	ref     MessageRef
	text    string
	format  TextFormat
	actions []Action
}

// fakeMessenger records every call in order
type fakeMessenger struct {
	mu         sync.Mutex
	events     []event
	nextID     int
	rejectHTML func(text string) bool
	sendErr    error
	editHook   func()
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, msg OutgoingText) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return MessageRef{}, m.sendErr
	}
	if m.rejectHTML != nil && msg.Format == FormatHTML && m.rejectHTML(msg.Text) {
		return MessageRef{}, errHTMLRejected
	}
	m.nextID++
	ref := MessageRef{ChatID: chatID, MessageID: m.nextID}
	m.events = append(m.events, event{op: "send", chatID: chatID, ref: ref, text: msg.Text, format: msg.Format, actions: msg.Actions})
	return ref, nil
}

func (m *fakeMessenger) SendImage(_ context.Context, chatID int64, path string) error {
	m.record(event{op: "image", chatID: chatID, text: path})
	return nil
}

func (m *fakeMessenger) EditText(_ context.Context, ref MessageRef, text string, format TextFormat) error {
	m.record(event{op: "edit", chatID: ref.ChatID, ref: ref, text: text, format: format})
	m.mu.Lock()
	hook := m.editHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, ref MessageRef) error {
	m.record(event{op: "delete", chatID: ref.ChatID, ref: ref})
	return nil
}

func (m *fakeMessenger) SendTyping(_ context.Context, chatID int64) error {
	m.record(event{op: "typing", chatID: chatID})
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, callbackID string) error {
	m.record(event{op: "callback", text: callbackID})
	return nil
}

func (m *fakeMessenger) record(e event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *fakeMessenger) all() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *fakeMessenger) ops(op string) []event {
	var out []event
	for _, e := range m.all() {
		if e.op == op {
			out = append(out, e)
		}
	}
	return out
}

// fakeCompleter returns a scripted reply and records what it was asked
type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	calls    int
	messages []string
	history  [][]ai.Turn
}

func (c *fakeCompleter) GetResponse(ctx context.Context, userMessage string, history []ai.Turn) (string, error) {
	c.mu.Lock()
	c.calls++
	c.messages = append(c.messages, userMessage)
	c.history = append(c.history, history)
	reply, err, delay := c.reply, c.err, c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

type scheduledJob struct {
	job   task.Job
	delay time.Duration
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []scheduledJob
}

func (s *fakeScheduler) Schedule(job task.Job, delay time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduledJob{job: job, delay: delay})
	return fmt.Sprintf("job-%d", len(s.jobs)), nil
}

func (s *fakeScheduler) scheduled() []scheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduledJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

type exchange struct {
	user     User
	message  string
	response string
}

type failure struct {
	flow string
	err  error
}

type fakeJournal struct {
	mu        sync.Mutex
	exchanges []exchange
	failures  []failure
}

func (j *fakeJournal) Exchange(user User, message, response string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.exchanges = append(j.exchanges, exchange{user: user, message: message, response: response})
}

func (j *fakeJournal) Failure(flow string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, failure{flow: flow, err: err})
}

type testBot struct {
	*Bot
	messenger *fakeMessenger
	completer *fakeCompleter
	scheduler *fakeScheduler
	journal   *fakeJournal
	history   *ai.MemoryHistoryStore
	content   *content.Content
	imagePath string
}

func newTestBot(t *testing.T, options Options) *testBot {
	t.Helper()

	copyText, err := content.Default()
	require.NoError(t, err)

	imagePath := filepath.Join(t.TempDir(), "upsell.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg"), 0644))
	if options.UpsellImagePath == "" {
		options.UpsellImagePath = imagePath
	}
	if options.ThinkingInterval == 0 {
		options.ThinkingInterval = time.Hour
	}

	tb := &testBot{
		messenger: &fakeMessenger{},
		completer: &fakeCompleter{reply: "Отличная ниша!"},
		scheduler: &fakeScheduler{},
		journal:   &fakeJournal{},
		history:   ai.NewMemoryHistoryStore(ai.DefaultHistoryLimit),
		content:   copyText,
		imagePath: options.UpsellImagePath,
	}
	tb.Bot, err = New(Dependencies{
		Completer: tb.completer,
		History:   tb.history,
		Messenger: tb.messenger,
		Scheduler: tb.scheduler,
		Content:   copyText,
		Journal:   tb.journal,
	}, options)
	require.NoError(t, err)
	return tb
}

func textUpdate(chatID int64, text string) Update {
	return Update{Kind: UpdateText, ChatID: chatID, User: User{ID: chatID, Username: "ivan"}, Text: text}
}
