package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHTTPClient_OutlastsLongPoll(t *testing.T) {
	client := DefaultHTTPClient()
	assert.NotZero(t, client.Timeout, "a stalled Bot API call must not block forever")
	assert.Greater(t, client.Timeout, DefaultPollTimeout*time.Second)
}
