package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vibecode/ideabot/internal/bot"
)

const (
	ConversationsFile = "conversations.log"
	ErrorsFile        = "errors.log"

	journalTimeLayout = "2006-01-02 15:04:05"
)

// Journal appends one line per exchange to the conversation log and one line per failure to the error log:
//
//	[2025-01-15 14:32:01] user_id=123456 username=@ivan_petrov message="..." response="..."
//	[2025-01-15 14:32:05] message: completion timed out
type Journal struct {
	conversations *zap.Logger
	errors        *zap.Logger
	closers       []io.Closer
}

// OpenJournal opens (creating if needed) the log files in dir
func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	conversations, err := openAppend(filepath.Join(dir, ConversationsFile))
	if err != nil {
		return nil, err
	}
	errorsLog, err := openAppend(filepath.Join(dir, ErrorsFile))
	if err != nil {
		conversations.Close()
		return nil, err
	}

	j := NewJournal(conversations, errorsLog)
	j.closers = []io.Closer{conversations, errorsLog}
	return j, nil
}

// NewJournal writes the journal to the given writers
func NewJournal(conversations io.Writer, errorsLog io.Writer) *Journal {
	return &Journal{
		conversations: journalLogger(conversations),
		errors:        journalLogger(errorsLog),
	}
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// journalLogger renders entries as "[timestamp] message" with no level, caller or fields
func journalLogger(w io.Writer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:    "time",
		MessageKey: "msg",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format(journalTimeLayout) + "]")
		},
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), zapcore.InfoLevel)
	return zap.New(core)
}

// Exchange records a message and the bot's response to it
func (j *Journal) Exchange(user bot.User, message, response string) {
	username := "no_username"
	if user.Username != "" {
		username = "@" + user.Username
	}
	j.conversations.Info(fmt.Sprintf(`user_id=%d username=%s message="%s" response="%s"`,
		user.ID, username, escapeQuotes(message), escapeQuotes(response)))
}

// Failure records a flow failure
func (j *Journal) Failure(flow string, err error) {
	j.errors.Error(fmt.Sprintf("%s: %v", flow, err))
}

// Close flushes and closes the log files opened by OpenJournal
func (j *Journal) Close() error {
	errs := []error{j.conversations.Sync(), j.errors.Sync()}
	for _, c := range j.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
