package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCMSend_OK(t *testing.T) {
	var got fcmRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/patt-book/messages:send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"name":"projects/patt-book/messages/1"}`))
	}))
	defer ts.Close()

	client := NewFCMClient(ts.URL, "patt-book", ts.Client())
	msg := PaymentRecordedMessage("+919876543210", "Ravi", "Sharma Stores", 5000, 1000).AsPush("device-1")

	require.NoError(t, client.Send(context.Background(), msg))
	assert.Equal(t, "device-1", got.Message.Token)
	assert.Equal(t, "Sharma Stores", got.Message.Notification.Title)
	assert.Equal(t, "payment", got.Message.Data["type"])
}

func TestFCMSend_Unregistered(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`))
	}))
	defer ts.Close()

	client := NewFCMClient(ts.URL, "p", ts.Client())
	err := client.Send(context.Background(), Message{Channel: ChannelPush, To: "stale"})
	assert.ErrorIs(t, err, ErrUnregistered)
}

func TestFCMSend_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewFCMClient(ts.URL, "p", ts.Client())
	err := client.Send(context.Background(), Message{Channel: ChannelPush, To: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnregistered)
}

func TestAsPush(t *testing.T) {
	msg := ManualReminderMessage("+919876543210", "Ravi", "Sharma Stores", 12345)
	push := msg.AsPush("tok")

	assert.Equal(t, ChannelPush, push.Channel)
	assert.Equal(t, "tok", push.To)
	assert.Empty(t, push.Template)
	assert.Equal(t, msg.Body, push.Body)
	assert.Contains(t, push.Body, "₹123.45")
	assert.Equal(t, ChannelWhatsApp, msg.Channel)
}
