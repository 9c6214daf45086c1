package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/logger"
)

// SettingKey: ключ лицензии в таблице system_config.
const SettingKey = "license_key"

// Settings: часть хранилища, где администратор сохраняет ключ.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Status: ответ для /license/status и /license/configure.
type Status struct {
	Configured  bool    `json:"configured"`
	Valid       bool    `json:"valid"`
	Message     string  `json:"message"`
	ProductName *string `json:"product_name,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
}

type Checker struct {
	client   *Client
	settings Settings
	envKey   string
	cache    Cache
	cacheTTL time.Duration
}

// NewChecker: envKey из конфигурации имеет приоритет над сохраненным ключом.
func NewChecker(client *Client, settings Settings, envKey string, cache Cache, cacheTTL time.Duration) *Checker {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Checker{
		client:   client,
		settings: settings,
		envKey:   strings.TrimSpace(envKey),
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *Checker) key(ctx context.Context) (string, error) {
	if c.envKey != "" {
		return c.envKey, nil
	}
	v, err := c.settings.GetSetting(ctx, SettingKey)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// verify кэширует только ответы сервера; сбои сети не кэшируются.
func (c *Checker) verify(ctx context.Context, key string) Result {
	ck := cacheKey(key)
	if res, ok := c.cache.Get(ctx, ck); ok {
		return res
	}
	res, err := c.client.Verify(ctx, key)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("license verification failed")
		return res
	}
	if c.cacheTTL > 0 {
		c.cache.Set(ctx, ck, res, c.cacheTTL)
	}
	return res
}

// Gate реализует service.FeatureGate. Без сервера лицензий и без ключа
// доступ открыт, чтобы администратор мог войти и настроить лицензию.
func (c *Checker) Gate(ctx context.Context) (bool, string) {
	if !c.client.Enabled() {
		return true, ""
	}
	key, err := c.key(ctx)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("read license key")
		return false, "license key is unavailable"
	}
	if key == "" {
		return true, ""
	}
	res := c.verify(ctx, key)
	return res.Valid, res.Message
}

func (c *Checker) Status(ctx context.Context) (Status, error) {
	key, err := c.key(ctx)
	if err != nil {
		return Status{}, apperr.Internal("read license key", err)
	}
	if key == "" {
		return Status{Configured: false, Valid: false, Message: "License key not configured"}, nil
	}
	return statusOf(true, c.verify(ctx, key)), nil
}

// Configure проверяет ключ и сохраняет его только если он действителен.
func (c *Checker) Configure(ctx context.Context, key string) (Status, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Status{}, apperr.Validation("license_key", "is required")
	}
	c.cache.Delete(ctx, cacheKey(key))
	res := c.verify(ctx, key)
	if !res.Valid {
		return Status{Configured: false, Valid: false, Message: res.Message}, nil
	}
	if err := c.settings.PutSetting(ctx, SettingKey, key); err != nil {
		return Status{}, apperr.Internal("save license key", err)
	}
	logger.FromContext(ctx).Info("license key configured")
	return statusOf(true, res), nil
}

func statusOf(configured bool, res Result) Status {
	st := Status{
		Configured:  configured,
		Valid:       res.Valid,
		Message:     res.Message,
		ProductName: res.ProductName,
	}
	if res.ExpiresAt != nil {
		exp := res.ExpiresAt.Format(time.RFC3339)
		st.ExpiresAt = &exp
	}
	return st
}
