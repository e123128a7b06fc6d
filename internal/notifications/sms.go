package notifications

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dasakami/alertme-backend/internal/config"
	"github.com/google/uuid"
)

// NikitaClient talks to the smspro.nikita.kg SMS gateway. The API takes an
// XML document per message and answers 200 with a status body.
type NikitaClient struct {
	apiURL     string
	login      string
	password   string
	sender     string
	httpClient *http.Client
}

// NewNikitaClient returns nil when credentials are absent (graceful
// degradation, the dispatcher treats a nil gateway as channel-not-configured).
func NewNikitaClient(cfg config.SMSConfig) *NikitaClient {
	if !cfg.Enabled() {
		return nil
	}
	return &NikitaClient{
		apiURL:   cfg.APIURL,
		login:    cfg.Login,
		password: cfg.Password,
		sender:   cfg.Sender,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nikitaMessage struct {
	XMLName xml.Name `xml:"message"`
	Login   string   `xml:"login"`
	Pwd     string   `xml:"pwd"`
	ID      string   `xml:"id"`
	Sender  string   `xml:"sender"`
	Text    string   `xml:"text"`
	Phones  struct {
		Phone []string `xml:"phone"`
	} `xml:"phones"`
}

func (c *NikitaClient) Send(ctx context.Context, phone, text string) error {
	normalized := normalizePhone(phone)
	if !strings.HasPrefix(normalized, "996") {
		return fmt.Errorf("only KG numbers supported, got %q", phone)
	}

	msg := nikitaMessage{
		Login:  c.login,
		Pwd:    c.password,
		ID:     uuid.New().String()[:8],
		Sender: c.sender,
		Text:   text,
	}
	msg.Phones.Phone = []string{normalized}

	body, err := xml.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}
	body = append([]byte(xml.Header), body...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned HTTP %d", resp.StatusCode)
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if strings.Contains(strings.ToLower(string(respBody)), "error") {
		return fmt.Errorf("sms gateway error: %s", strings.TrimSpace(string(respBody)))
	}
	return nil
}

// normalizePhone strips formatting and coerces local numbers to the
// international 996-prefixed form the gateway expects.
func normalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()

	switch {
	case strings.HasPrefix(p, "996"):
		return p
	case strings.HasPrefix(p, "0"):
		return "996" + p[1:]
	case len(p) == 9:
		return "996" + p
	}
	return p
}
