package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	platformredis "github.com/hweber/secondbrain/internal/platform/redis"
	"github.com/hweber/secondbrain/modules/notify/model"
	"github.com/hweber/secondbrain/modules/notify/ports"
)

const telegramConfigCacheKey = "telegram:config"

// Router manages channel contexts and routing decisions. Responses go back
// to the channel they came from.
type Router struct {
	repo  ports.ConfigRepository
	cache *platformredis.Client

	mu     sync.RWMutex
	tgConf *model.TelegramConfig
}

// NewRouter creates a channel router. The cache may be nil.
func NewRouter(repo ports.ConfigRepository, cache *platformredis.Client) *Router {
	return &Router{repo: repo, cache: cache}
}

// NewContext creates a channel context
func (r *Router) NewContext(channel, channelID string, metadata map[string]interface{}) model.ChannelContext {
	if channel == "" {
		channel = model.ChannelWeb
	}
	return model.ChannelContext{Channel: channel, ChannelID: channelID, Metadata: metadata}
}

// ShouldSendToChannel reports whether a message for targetChannel belongs
// to the given origin context.
func (r *Router) ShouldSendToChannel(ctx model.ChannelContext, targetChannel string) bool {
	return ctx.Channel == targetChannel
}

// TelegramConfig returns the active bot configuration, cached in-process
// and (when available) in Redis.
func (r *Router) TelegramConfig(ctx context.Context) (*model.TelegramConfig, error) {
	r.mu.RLock()
	cached := r.tgConf
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, telegramConfigCacheKey).Bytes(); err == nil {
			var cfg model.TelegramConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				r.mu.Lock()
				r.tgConf = &cfg
				r.mu.Unlock()
				return &cfg, nil
			}
		}
	}

	cfg, err := r.repo.GetTelegramConfig(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.tgConf = cfg
	r.mu.Unlock()

	if r.cache != nil {
		if encoded, err := json.Marshal(cfg); err == nil {
			r.cache.Set(ctx, telegramConfigCacheKey, encoded, 5*time.Minute)
		}
	}
	return cfg, nil
}

// InvalidateCache drops the cached Telegram configuration
func (r *Router) InvalidateCache(ctx context.Context) {
	r.mu.Lock()
	r.tgConf = nil
	r.mu.Unlock()

	if r.cache != nil {
		r.cache.Del(ctx, telegramConfigCacheKey)
	}
}
