package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Dasakami/alertme-backend/internal/config"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// chatIDCacheTTL bounds repeated directory lookups within a notification
// burst for the same event.
const chatIDCacheTTL = time.Hour

// TelegramClient sends bot messages and resolves @handles through the
// telegram_users directory (populated by the /start webhook). Handle lookups
// go through a short-TTL in-process cache.
type TelegramClient struct {
	token      string
	db         *gorm.DB
	httpClient *http.Client
	cache      *gocache.Cache
}

func NewTelegramClient(cfg config.TelegramConfig, db *gorm.DB) *TelegramClient {
	if !cfg.Enabled() {
		return nil
	}
	return &TelegramClient{
		token: cfg.BotToken,
		db:    db,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: gocache.New(chatIDCacheTTL, 10*time.Minute),
	}
}

// LookupChatID resolves a handle (case-insensitive, leading @ ignored) to a
// chat id. A contact is only reachable after they messaged the bot once.
func (c *TelegramClient) LookupChatID(ctx context.Context, handle string) (int64, error) {
	handle = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if handle == "" {
		return 0, fmt.Errorf("empty telegram handle")
	}

	cacheKey := "tg_chat_id:" + handle
	if v, ok := c.cache.Get(cacheKey); ok {
		return v.(int64), nil
	}

	var tgUser TelegramUser
	err := c.db.WithContext(ctx).
		Where("LOWER(username) = ? AND is_active = ?", handle, true).
		First(&tgUser).Error
	if err != nil {
		return 0, fmt.Errorf("telegram user @%s not registered: %w", handle, err)
	}

	c.cache.Set(cacheKey, tgUser.ChatID, chatIDCacheTTL)
	return tgUser.ChatID, nil
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal telegram request: %w", err)
	}

	u := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram API: %s", tgResp.Description)
	}
	return nil
}
