package telegram

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	method string
	params map[string]string
}

// fakeBotAPI serves the Bot API methods the adapter uses and records every call
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	results map[string]string // Raw JSON results by method, overriding the defaults
	failing map[string]string // Error descriptions by method
	nextID  int
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *tgbotapi.BotAPI) {
	t.Helper()
	fake := &fakeBotAPI{results: map[string]string{}, failing: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	api, err := NewClient("123:token", server.Client(), server.URL+"/bot%s/%s")
	require.NoError(t, err)
	return fake, api
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		_ = r.ParseMultipartForm(1 << 20)
	} else {
		_ = r.ParseForm()
	}
	params := map[string]string{}
	for k, v := range r.Form {
		params[k] = v[0]
	}
	if r.MultipartForm != nil {
		for k := range r.MultipartForm.File {
			params[k] = "<file>"
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	description, failing := f.failing[method]
	result, ok := f.results[method]
	if !ok {
		result = f.defaultResult(method, params)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"` + description + `"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":` + result + `}`))
}

// defaultResult must be called with mu held
func (f *fakeBotAPI) defaultResult(method string, params map[string]string) string {
	switch method {
	case "getMe":
		return `{"id":1,"is_bot":true,"first_name":"Ideas","username":"idea_bot"}`
	case "sendMessage", "sendPhoto":
		f.nextID++
		chatID := params["chat_id"]
		if chatID == "" {
			chatID = "0"
		}
		return `{"message_id":` + strconv.Itoa(f.nextID) + `,"date":0,"chat":{"id":` + chatID + `,"type":"private"}}`
	case "getWebhookInfo":
		return `{"url":"","has_custom_certificate":false,"pending_update_count":0}`
	case "getUpdates":
		return `[]`
	default:
		return `true`
	}
}

func (f *fakeBotAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}
