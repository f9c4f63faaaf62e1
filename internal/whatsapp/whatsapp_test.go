package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textEnvelope = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "573000000000", "phone_number_id": "1098"},
        "contacts": [{"wa_id": "573001234567", "profile": {"name": "Laura"}}],
        "messages": [
          {"id": "wamid.1", "from": "573001234567", "timestamp": "1700000000", "type": "text", "text": {"body": "hola"}},
          {"id": "wamid.2", "from": "573001234567", "timestamp": "1700000001", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestParse(t *testing.T) {
	msgs, err := Parse([]byte(textEnvelope))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, InboundMessage{
		ID:            "wamid.1",
		From:          "573001234567",
		Type:          "text",
		Text:          "hola",
		DisplayName:   "Laura",
		PhoneNumberID: "1098",
	}, msgs[0])
	assert.Equal(t, "image", msgs[1].Type)
	assert.Empty(t, msgs[1].Text)
}

func TestParseStatusUpdate(t *testing.T) {
	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1","status":"read"}]}}]}]}`

	msgs, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"object":"page","entry":[]}`))
	assert.ErrorIs(t, err, ErrNotWhatsApp)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(textEnvelope)
	sig := Sign("secret", body)

	assert.True(t, VerifySignature("secret", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("secret", []byte("{}"), sig))
	assert.False(t, VerifySignature("secret", body, ""))
	assert.False(t, VerifySignature("secret", body, "sha256=zz"))
}

func TestSendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1098/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.out"}]}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, "token").SendText(context.Background(), "1098", "573001234567", "¡Hola!")
	require.NoError(t, err)

	assert.Equal(t, "wamid.out", id)
	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "573001234567", got["to"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "¡Hola!", got["text"].(map[string]any)["body"])
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad").SendText(context.Background(), "1098", "573001234567", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")

	_, err = NewClient(srv.URL, "bad").SendText(context.Background(), "", "573001234567", "hola")
	assert.Error(t, err)
}
