package opencode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestClient_CreateSession_UnwrapsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session", r.URL.Path)
		w.Write([]byte(`{"data":{"id":"ses_1","title":"hello"}}`))
	}))
	defer srv.Close()

	payload, err := NewClient(srv.URL).CreateSession(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ses_1","title":"hello"}`, string(payload))
}

func TestClient_CreateSession_BarePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ses_2"}`))
	}))
	defer srv.Close()

	payload, err := NewClient(srv.URL).CreateSession(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ses_2"}`, string(payload))
}

func TestClient_SendMessage_Body(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session/ses_1/message", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &got))
		w.Write([]byte(`{"info":{"id":"msg_1","role":"assistant"},"parts":[{"type":"text","text":"hi"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SendMessage(ctx, "ses_1", "hello")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", got.ProviderID)
	assert.Equal(t, "claude-3-5-sonnet-20241022", got.ModelID)
	require.Len(t, got.Parts, 1)
	assert.Equal(t, TextPart{Type: "text", Text: "hello"}, got.Parts[0])
}

func TestClient_SendMessage_Overrides(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithDefaults("openai", "gpt-4o"))
	_, err := client.SendMessage(ctx, "s", "x", WithModel("gpt-4.1"))
	require.NoError(t, err)

	assert.Equal(t, "openai", got.ProviderID)
	assert.Equal(t, "gpt-4.1", got.ModelID)
}

func TestClient_ListMessages_KeepsShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"1"}]}`))
	}))
	defer srv.Close()

	payload, err := NewClient(srv.URL).ListMessages(ctx, "ses_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"1"}]}`, string(payload))
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"name":"NotFoundError","data":{"message":"session not found"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListMessages(ctx, "missing")
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusNotFound, remote.Status)
	assert.Equal(t, "API Error (404): session not found", HandleError(err))
}

func TestClient_StatusErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListSessions(ctx)
	assert.Equal(t, "API Error (502): Bad Gateway", HandleError(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).GetAppInfo(ctx)
	require.Error(t, err)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Zero(t, remote.Status)
	assert.Contains(t, HandleError(err), "failed to send request")
}

func TestClient_GetAppInfo_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/app", r.URL.Path)
		hits.Add(1)
		w.Write([]byte(`{"hostname":"box"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithAppInfoTTL(time.Minute))
	for i := 0; i < 3; i++ {
		info, err := client.GetAppInfo(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"hostname":"box"}`, string(info))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GetAppInfo_NoCacheByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.GetAppInfo(ctx)
	client.GetAppInfo(ctx)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status and message", &RemoteError{Status: 404, Message: "x"}, "API Error (404): x"},
		{"status without message", &RemoteError{Status: 500}, "API Error (500): Unknown error"},
		{"message only", errors.New("y"), "y"},
		{"remote message only", &RemoteError{Message: "dial failed"}, "dial failed"},
		{"empty remote", &RemoteError{}, "Unknown error occurred"},
		{"nil", nil, "Unknown error occurred"},
		{"empty message", errors.New(""), "Unknown error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HandleError(tt.err))
		})
	}
}
