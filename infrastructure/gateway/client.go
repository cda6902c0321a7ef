package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
	maxBody        = 4 << 20
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a typed wrapper over the gateway's REST surface.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	keys       domainGateway.IKeyResolver
	httpClient *http.Client
}

// NewClient builds a client. keys may be nil, in which case every tenant
// uses cfg.APIKey. httpClient may be nil.
func NewClient(cfg Config, keys domainGateway.IKeyResolver, httpClient *http.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		keys:       keys,
		httpClient: httpClient,
	}
}

type createInstanceBody struct {
	InstanceName string       `json:"instanceName"`
	Integration  string       `json:"integration"`
	QRCode       bool         `json:"qrcode"`
	Webhook      *webhookBody `json:"webhook,omitempty"`
}

type webhookBody struct {
	URL      string   `json:"url"`
	Enabled  bool     `json:"enabled"`
	ByEvents bool     `json:"byEvents"`
	Base64   bool     `json:"base64"`
	Events   []string `json:"events"`
}

type qrCodeBody struct {
	PairingCode *string `json:"pairingCode"`
	Code        string  `json:"code"`
	Base64      string  `json:"base64"`
}

type instanceStateBody struct {
	InstanceName string `json:"instanceName"`
	InstanceID   string `json:"instanceId"`
	Status       string `json:"status"`
	State        string `json:"state"`
}

func (c *Client) CreateInstance(ctx context.Context, tenantID, name string, webhook *domainGateway.WebhookSettings) (domainGateway.CreateInstanceResult, error) {
	body := createInstanceBody{
		InstanceName: name,
		Integration:  "WHATSAPP-BAILEYS",
		QRCode:       true,
	}
	if webhook != nil {
		body.Webhook = toWebhookBody(*webhook)
	}

	var resp struct {
		Instance instanceStateBody `json:"instance"`
		QRCode   *qrCodeBody       `json:"qrcode"`
	}
	if err := c.do(ctx, tenantID, "create", http.MethodPost, "/instance/create", body, &resp); err != nil {
		return domainGateway.CreateInstanceResult{}, err
	}

	result := domainGateway.CreateInstanceResult{
		InstanceID: resp.Instance.InstanceID,
		Status:     resp.Instance.Status,
	}
	if resp.QRCode != nil {
		result.QRCode = qrPayload(*resp.QRCode)
		result.PairingCode = deref(resp.QRCode.PairingCode)
	}
	return result, nil
}

func (c *Client) DeleteInstance(ctx context.Context, tenantID, name string) error {
	return c.do(ctx, tenantID, "delete", http.MethodDelete, "/instance/delete/"+url.PathEscape(name), nil, nil)
}

func (c *Client) Connect(ctx context.Context, tenantID, name string) (domainGateway.ConnectResult, error) {
	var resp struct {
		qrCodeBody
		Instance *instanceStateBody `json:"instance"`
	}
	if err := c.do(ctx, tenantID, "connect", http.MethodGet, "/instance/connect/"+url.PathEscape(name), nil, &resp); err != nil {
		return domainGateway.ConnectResult{}, err
	}

	result := domainGateway.ConnectResult{
		QRCode:      qrPayload(resp.qrCodeBody),
		PairingCode: deref(resp.PairingCode),
	}
	if resp.Instance != nil {
		result.State = resp.Instance.State
	}
	return result, nil
}

func (c *Client) Logout(ctx context.Context, tenantID, name string) error {
	return c.do(ctx, tenantID, "logout", http.MethodDelete, "/instance/logout/"+url.PathEscape(name), nil, nil)
}

func (c *Client) ConnectionState(ctx context.Context, tenantID, name string) (string, error) {
	var resp struct {
		Instance instanceStateBody `json:"instance"`
	}
	if err := c.do(ctx, tenantID, "connectionState", http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), nil, &resp); err != nil {
		return "", err
	}
	return resp.Instance.State, nil
}

func (c *Client) FetchInstance(ctx context.Context, tenantID, name string) (domainGateway.InstanceInfo, error) {
	var resp []struct {
		Name             string `json:"name"`
		ConnectionStatus string `json:"connectionStatus"`
		OwnerJID         string `json:"ownerJid"`
		Number           string `json:"number"`
		ProfileName      string `json:"profileName"`
		ProfilePicURL    string `json:"profilePicUrl"`
	}
	path := "/instance/fetchInstances?instanceName=" + url.QueryEscape(name)
	if err := c.do(ctx, tenantID, "fetchInstances", http.MethodGet, path, nil, &resp); err != nil {
		return domainGateway.InstanceInfo{}, err
	}

	for _, item := range resp {
		if item.Name != name {
			continue
		}
		info := domainGateway.InstanceInfo{
			Name:              item.Name,
			State:             item.ConnectionStatus,
			ProfileName:       item.ProfileName,
			Number:            utils.DigitsOnly(item.Number),
			ProfilePictureURL: item.ProfilePicURL,
		}
		if info.Number == "" && item.OwnerJID != "" {
			if owner, ok := utils.ParseRemoteJID(item.OwnerJID); ok {
				info.Number = owner.User
			}
		}
		return info, nil
	}
	return domainGateway.InstanceInfo{}, &domainGateway.Error{Op: "fetchInstances", Status: http.StatusNotFound, Body: "instance not listed"}
}

func (c *Client) SendText(ctx context.Context, tenantID, name string, request domainGateway.SendTextRequest) (domainGateway.SendResult, error) {
	body := map[string]any{
		"number": request.Number,
		"text":   request.Text,
	}
	var resp struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			ID        string `json:"id"`
		} `json:"key"`
		Status           string        `json:"status"`
		MessageTimestamp utils.FlexInt `json:"messageTimestamp"`
	}
	if err := c.do(ctx, tenantID, "sendText", http.MethodPost, "/message/sendText/"+url.PathEscape(name), body, &resp); err != nil {
		return domainGateway.SendResult{}, err
	}

	result := domainGateway.SendResult{
		MessageID: resp.Key.ID,
		RemoteJID: resp.Key.RemoteJID,
		Status:    resp.Status,
		Timestamp: time.Now().UTC(),
	}
	if resp.MessageTimestamp > 0 {
		result.Timestamp = time.Unix(int64(resp.MessageTimestamp), 0).UTC()
	}
	if result.MessageID == "" {
		return result, &domainGateway.Error{Op: "sendText", Status: http.StatusBadGateway, Body: "response carried no message id"}
	}
	return result, nil
}

func (c *Client) SetWebhook(ctx context.Context, tenantID, name string, webhook domainGateway.WebhookSettings) error {
	body := map[string]any{"webhook": toWebhookBody(webhook)}
	return c.do(ctx, tenantID, "setWebhook", http.MethodPost, "/webhook/set/"+url.PathEscape(name), body, nil)
}

// do runs one bounded request. Non-2xx responses become *Error with the
// status and a truncated body.
func (c *Client) do(ctx context.Context, tenantID, op, method, path string, body, out any) error {
	apiKey, err := c.keyFor(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("resolving gateway key: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		gwErr := &domainGateway.Error{Op: op, Err: err, Timeout: isTimeout(ctx, err)}
		logrus.WithError(err).Warnf("[GATEWAY] %s %s failed after %s", method, path, time.Since(started))
		return gwErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &domainGateway.Error{Op: op, Err: err, Timeout: isTimeout(ctx, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.Debugf("[GATEWAY] %s %s -> %d", method, path, resp.StatusCode)
		return &domainGateway.Error{Op: op, Status: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domainGateway.Error{Op: op, Status: resp.StatusCode, Body: "undecodable response", Err: err}
		}
	}
	return nil
}

func (c *Client) keyFor(ctx context.Context, tenantID string) (string, error) {
	if c.keys == nil {
		return c.apiKey, nil
	}
	key, err := c.keys.KeyFor(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if key == "" {
		return c.apiKey, nil
	}
	return key, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func toWebhookBody(w domainGateway.WebhookSettings) *webhookBody {
	events := w.Events
	if len(events) == 0 {
		events = domainGateway.DefaultWebhookEvents
	}
	return &webhookBody{URL: w.URL, Enabled: w.Enabled, Events: events}
}

// qrPayload prefers the raw QR string over the rendered image.
func qrPayload(qr qrCodeBody) string {
	if qr.Code != "" {
		return qr.Code
	}
	return qr.Base64
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
