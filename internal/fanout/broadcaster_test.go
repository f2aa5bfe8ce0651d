package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"siteforge/internal/domain"
)

func recvOne(t *testing.T, ch <-chan *domain.Website) *domain.Website {
	t.Helper()
	select {
	case doc := <-ch:
		return doc
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestMemoryBroadcasterDelivers(t *testing.T) {
	b := NewMemoryBroadcaster()
	defer b.Close()

	ch1, cancel1, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)
	defer cancel2()
	// 别的站点的订阅者不该收到
	other, cancelOther, err := b.Subscribe(context.Background(), "w2")
	require.NoError(t, err)
	defer cancelOther()

	doc := &domain.Website{ID: "w1", Version: 2}
	require.NoError(t, b.Publish(context.Background(), "w1", doc))

	require.Equal(t, int64(2), recvOne(t, ch1).Version)
	require.Equal(t, int64(2), recvOne(t, ch2).Version)
	select {
	case <-other:
		t.Fatal("cross-topic delivery")
	default:
	}
}

func TestMemoryBroadcasterOrdering(t *testing.T) {
	b := NewMemoryBroadcaster()
	defer b.Close()

	ch, cancel, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)
	defer cancel()

	for v := int64(1); v <= 5; v++ {
		require.NoError(t, b.Publish(context.Background(), "w1", &domain.Website{ID: "w1", Version: v}))
	}
	// 单发布方对单话题 FIFO
	for v := int64(1); v <= 5; v++ {
		require.Equal(t, v, recvOne(t, ch).Version)
	}
}

func TestMemoryBroadcasterCancel(t *testing.T) {
	b := NewMemoryBroadcaster()
	defer b.Close()

	ch, cancel, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)

	cancel()
	_, open := <-ch
	require.False(t, open)

	// 退订后发布不报错也不投递
	require.NoError(t, b.Publish(context.Background(), "w1", &domain.Website{ID: "w1"}))
	// 二次 cancel 幂等
	cancel()
}

// 慢订阅者塞满缓冲后丢事件，Publish 不许阻塞
func TestMemoryBroadcasterSlowSubscriber(t *testing.T) {
	b := NewMemoryBroadcaster()
	defer b.Close()

	_, cancel, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = b.Publish(context.Background(), "w1", &domain.Website{ID: "w1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestMemoryBroadcasterClose(t *testing.T) {
	b := NewMemoryBroadcaster()
	ch, cancel, err := b.Subscribe(context.Background(), "w1")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-ch
	require.False(t, open)

	// Close 后 cancel 不许 panic
	cancel()
	require.NoError(t, b.Close())
}
