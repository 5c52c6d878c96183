package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

type gatewayRequest struct {
	To        string            `json:"to"`
	Channel   string            `json:"channel"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables,omitempty"`
	Mode      string            `json:"mode,omitempty"`
}

type gatewayResponse struct {
	MessageID string `json:"messageId"`
	ErrorCode string `json:"errorCode"`
	Error     string `json:"error"`
}

// HTTPGateway sends one channel's messages through its provider
// gateway endpoint. WhatsApp, SMS, and email relays share the request
// shape; voice gateways additionally carry a call mode.
type HTTPGateway struct {
	client   *resty.Client
	endpoint string
	channel  domain.Channel
	mode     string
}

func NewWhatsAppGateway(endpoint string) (*HTTPGateway, error) {
	return newHTTPGateway(endpoint, domain.ChannelWhatsApp, "", nil)
}

func NewSMSGateway(endpoint string) (*HTTPGateway, error) {
	return newHTTPGateway(endpoint, domain.ChannelSMS, "", nil)
}

func NewEmailGateway(endpoint string) (*HTTPGateway, error) {
	return newHTTPGateway(endpoint, domain.ChannelEmail, "", nil)
}

// NewVoiceGateway drives the outbound telephony bridge. AI_VOICE and
// IVR are distinct channels over the same bridge, distinguished by mode.
func NewVoiceGateway(endpoint string, channel domain.Channel) (*HTTPGateway, error) {
	if channel != domain.ChannelAIVoice && channel != domain.ChannelIVR {
		return nil, fmt.Errorf("voice gateway does not serve channel %q", channel)
	}
	return newHTTPGateway(endpoint, channel, strings.ToLower(channel.String()), nil)
}

// NewHTTPGatewayWithClient exists for tests that need a custom resty client.
func NewHTTPGatewayWithClient(endpoint string, channel domain.Channel, client *resty.Client) (*HTTPGateway, error) {
	return newHTTPGateway(endpoint, channel, "", client)
}

func newHTTPGateway(endpoint string, channel domain.Channel, mode string, client *resty.Client) (*HTTPGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if !channel.IsValid() {
		return nil, fmt.Errorf("invalid channel %q", channel)
	}

	if client == nil {
		client = resty.New()
		client.SetTimeout(defaultGatewayTimeout)
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPGateway{
		client:   client,
		endpoint: trimmedEndpoint,
		channel:  channel,
		mode:     mode,
	}, nil
}

func (g *HTTPGateway) Send(ctx context.Context, to string, content string, variables map[string]string) (*SendResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("gateway is not initialized")
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	reqBody := gatewayRequest{
		To:        to,
		Channel:   strings.ToLower(g.channel.String()),
		Content:   content,
		Variables: variables,
		Mode:      g.mode,
	}

	var respBody gatewayResponse
	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&respBody).
		SetError(&respBody).
		Post(g.endpoint)
	if err != nil {
		return nil, &AdapterError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &AdapterError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			ProviderMessageID: firstNonEmpty(respBody.MessageID, providerMessageIDFromHeaders(response)),
			StatusCode:        statusCode,
		}, nil
	}

	return nil, &AdapterError{
		StatusCode: statusCode,
		Code:       strings.TrimSpace(respBody.ErrorCode),
		Message:    gatewayErrorMessage(statusCode, respBody.Error),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if strings.TrimSpace(body) == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, strings.TrimSpace(body))
}

func providerMessageIDFromHeaders(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
