package game

import (
	"math/rand/v2"
	"time"
)

// Runtime 为状态转换提供时间和随机数来源
// Rand 为 nil 时使用 math/rand/v2 的全局（并发安全）函数
type Runtime struct {
	Clock func() time.Time
	Rand  *rand.Rand
}

func NewRuntime() Runtime {
	return Runtime{Clock: time.Now}
}

func (rt Runtime) now() time.Time {
	if rt.Clock == nil {
		return time.Now()
	}

	return rt.Clock()
}

func (rt Runtime) nowMillis() int64 {
	return rt.now().UnixMilli()
}

func (rt Runtime) intN(n int) int {
	if rt.Rand != nil {
		return rt.Rand.IntN(n)
	}

	return rand.IntN(n)
}

func (rt Runtime) seed() int64 {
	if rt.Rand != nil {
		return rt.Rand.Int64N(1 << 53)
	}

	return rand.Int64N(1 << 53)
}
