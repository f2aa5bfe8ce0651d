package fanout

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"siteforge/internal/domain"
)

const topicPrefix = "website:changed:"

// RedisBroadcaster 把话题通道放到 redis pub/sub 上，多实例部署时
// 任一节点的变更对所有节点的订阅者可见。
type RedisBroadcaster struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedisBroadcaster(rdb *redis.Client, log *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb, log: log}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, websiteID string, doc *domain.Website) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, topicPrefix+websiteID, payload).Err()
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, websiteID string) (<-chan *domain.Website, func(), error) {
	ps := b.rdb.Subscribe(ctx, topicPrefix+websiteID)
	// 确认订阅建立，避免丢掉紧随其后的发布
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan *domain.Website, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var w domain.Website
			if err := json.Unmarshal([]byte(msg.Payload), &w); err != nil {
				b.log.Warn("fanout: drop malformed payload",
					zap.String("website_id", websiteID), zap.Error(err))
				continue
			}
			select {
			case out <- &w:
			default:
			}
		}
	}()

	cancel := func() { _ = ps.Close() }
	return out, cancel, nil
}

func (b *RedisBroadcaster) Close() error { return nil } // 客户端归 cmd 层管
