package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type staticKeys map[string]string

func (s staticKeys) KeyFor(_ context.Context, tenantID string) (string, error) {
	return s[tenantID], nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestClient(keys domainGateway.IKeyResolver, rt roundTripperFunc) *Client {
	return NewClient(Config{BaseURL: "https://gw.test/", APIKey: "global-key", Timeout: time.Second}, keys, &http.Client{Transport: rt})
}

func TestClient_SendTextUsesTenantKey(t *testing.T) {
	var (
		gotURL  string
		gotKey  string
		gotBody map[string]any
	)
	client := newTestClient(staticKeys{"t1": "tenant-key"}, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		gotKey = req.Header.Get("apikey")
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &gotBody)
		return jsonResponse(201, `{"key":{"remoteJid":"5511988887777@s.whatsapp.net","fromMe":true,"id":"BAE5F1"},"status":"PENDING","messageTimestamp":"1717171717"}`), nil
	})

	res, err := client.SendText(context.Background(), "t1", "vendas", domainGateway.SendTextRequest{Number: "5511988887777", Text: "Olá"})
	require.NoError(t, err)

	assert.Equal(t, "https://gw.test/message/sendText/vendas", gotURL)
	assert.Equal(t, "tenant-key", gotKey)
	assert.Equal(t, "Olá", gotBody["text"])
	assert.Equal(t, "BAE5F1", res.MessageID)
	assert.Equal(t, int64(1717171717), res.Timestamp.Unix())
}

func TestClient_FallsBackToGlobalKey(t *testing.T) {
	var gotKey string
	client := newTestClient(staticKeys{}, func(req *http.Request) (*http.Response, error) {
		gotKey = req.Header.Get("apikey")
		return jsonResponse(200, `{"instance":{"instanceName":"vendas","state":"open"}}`), nil
	})

	state, err := client.ConnectionState(context.Background(), "t9", "vendas")
	require.NoError(t, err)
	assert.Equal(t, "open", state)
	assert.Equal(t, "global-key", gotKey)
}

func TestClient_ConnectReturnsQRCode(t *testing.T) {
	client := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/instance/connect/vendas", req.URL.Path)
		return jsonResponse(200, `{"pairingCode":"WZYEH1YY","code":"2@y8eK+bjtEjUWy9","base64":"data:image/png;base64,iVBOR","count":1}`), nil
	})

	res, err := client.Connect(context.Background(), "t1", "vendas")
	require.NoError(t, err)
	assert.Equal(t, "2@y8eK+bjtEjUWy9", res.QRCode)
	assert.Equal(t, "WZYEH1YY", res.PairingCode)
	assert.Empty(t, res.State)
}

func TestClient_ConnectAlreadyOpen(t *testing.T) {
	client := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"instance":{"instanceName":"vendas","state":"open"}}`), nil
	})

	res, err := client.Connect(context.Background(), "t1", "vendas")
	require.NoError(t, err)
	assert.Equal(t, "open", res.State)
	assert.Empty(t, res.QRCode)
}

func TestClient_CreateInstanceSendsWebhook(t *testing.T) {
	var body map[string]any
	client := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &body)
		return jsonResponse(201, `{"instance":{"instanceName":"vendas","instanceId":"af6c5b7c","status":"created"},"hash":"abc","qrcode":{"code":"2@qr","base64":"data:..."}}`), nil
	})

	res, err := client.CreateInstance(context.Background(), "t1", "vendas", &domainGateway.WebhookSettings{URL: "https://juris.test/webhook/t1", Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "af6c5b7c", res.InstanceID)
	assert.Equal(t, "2@qr", res.QRCode)

	assert.Equal(t, "vendas", body["instanceName"])
	webhook, ok := body["webhook"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://juris.test/webhook/t1", webhook["url"])
	assert.Len(t, webhook["events"], len(domainGateway.DefaultWebhookEvents))
}

func TestClient_FetchInstanceProfile(t *testing.T) {
	client := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "vendas", req.URL.Query().Get("instanceName"))
		return jsonResponse(200, `[{"name":"vendas","connectionStatus":"open","ownerJid":"5511999999999@s.whatsapp.net","profileName":"Escritório","profilePicUrl":"https://pps.whatsapp.net/p.jpg"}]`), nil
	})

	info, err := client.FetchInstance(context.Background(), "t1", "vendas")
	require.NoError(t, err)
	assert.Equal(t, "open", info.State)
	assert.Equal(t, "5511999999999", info.Number)
	assert.Equal(t, "Escritório", info.ProfileName)
}

func TestClient_ErrorMapping(t *testing.T) {
	client := newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"status":404,"error":"Not Found","response":{"message":["The \"vendas\" instance does not exist"]}}`), nil
	})
	err := client.DeleteInstance(context.Background(), "t1", "vendas")
	require.Error(t, err)
	assert.True(t, domainGateway.IsNotFound(err))
	assert.False(t, domainGateway.IsTransient(err))

	client = newTestClient(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(500, `boom`), nil
	})
	err = client.Logout(context.Background(), "t1", "vendas")
	assert.True(t, domainGateway.IsTransient(err))
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://gw.test", Timeout: 20 * time.Millisecond}, nil, &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}),
	})

	_, err := client.ConnectionState(context.Background(), "t1", "vendas")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainGateway.ErrTimeout))
	assert.True(t, domainGateway.IsTransient(err))
}
