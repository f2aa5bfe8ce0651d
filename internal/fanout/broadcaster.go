package fanout

import (
	"context"
	"sync"

	"siteforge/internal/domain"
)

// Broadcaster 是话题通道：按站点 id 发布变更后的完整文档，订阅者是
// 活跃连接（断开即退订）。只保证"发布时在线的订阅者收得到"，
// 无回放；单发布方对单话题内部 FIFO。
//
// 实例在进程启动时构造、注入修订引擎、停机时 Close —— 不做包级全局状态。
type Broadcaster interface {
	Publish(ctx context.Context, websiteID string, doc *domain.Website) error
	Subscribe(ctx context.Context, websiteID string) (<-chan *domain.Website, func(), error)
	Close() error
}

const subscriberBuffer = 16

// MemoryBroadcaster 进程内实现，测试与单节点部署用
type MemoryBroadcaster struct {
	mu     sync.Mutex
	topics map[string]map[chan *domain.Website]struct{}
	closed bool
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{topics: map[string]map[chan *domain.Website]struct{}{}}
}

func (b *MemoryBroadcaster) Publish(_ context.Context, websiteID string, doc *domain.Website) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.topics[websiteID] {
		select {
		case ch <- doc:
		default:
			// 慢订阅者丢事件，广播绝不阻塞变更路径
		}
	}
	return nil
}

func (b *MemoryBroadcaster) Subscribe(_ context.Context, websiteID string) (<-chan *domain.Website, func(), error) {
	ch := make(chan *domain.Website, subscriberBuffer)
	b.mu.Lock()
	if b.topics[websiteID] == nil {
		b.topics[websiteID] = map[chan *domain.Website]struct{}{}
	}
	b.topics[websiteID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.topics[websiteID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.topics, websiteID)
				}
			}
			closed := b.closed
			b.mu.Unlock()
			if !closed {
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

func (b *MemoryBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.topics {
		for ch := range subs {
			close(ch)
		}
	}
	b.topics = map[string]map[chan *domain.Website]struct{}{}
	return nil
}
