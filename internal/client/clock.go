package client

import (
	"sync"
	"time"
)

// Clock 根据记录中的 serverTimestamp 估计服务端时间
// 记录的时间戳是写入时刻，每个样本只是偏移量的下界，因此取所有样本中的最大值
type Clock struct {
	mu     sync.Mutex
	offset time.Duration
	synced bool

	local func() time.Time
}

func NewClock() *Clock {
	return &Clock{local: time.Now}
}

// Observe 记录一次读取：sentAt 与 receivedAt 是本地的请求发出与收到时间
func (c *Clock) Observe(serverMillis int64, sentAt, receivedAt time.Time) {
	if serverMillis <= 0 {
		return
	}

	rtt := receivedAt.Sub(sentAt)
	if rtt < 0 {
		rtt = 0
	}

	estimated := time.UnixMilli(serverMillis).Add(rtt / 2)
	sample := estimated.Sub(receivedAt)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.synced || sample > c.offset {
		c.offset = sample
		c.synced = true
	}
}

func (c *Clock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.offset
}

// Now 返回估计的服务端当前时间
func (c *Clock) Now() time.Time {
	return c.local().Add(c.Offset())
}
