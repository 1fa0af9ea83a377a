package state

import (
	"sync"

	"impostor-be/internal/config"
	"impostor-be/internal/service"
	"impostor-be/internal/store"
)

// AppState 是各个处理器共享的依赖
type AppState struct {
	Cfg     *config.AppConfig
	RoomSvc *service.RoomService
	// 与 RoomSvc 共用的底层存储，kv 接口直接读写它
	Store store.Store

	closers   []func()
	closeOnce sync.Once
}

func NewAppState(
	cfg *config.AppConfig,
	roomSvc *service.RoomService,
	st store.Store,
) *AppState {
	return &AppState{
		Cfg:     cfg,
		RoomSvc: roomSvc,
		Store:   st,
	}
}

// OnClose 注册在 Close 时执行的清理函数，按注册的逆序执行
func (as *AppState) OnClose(fn func()) {
	as.closers = append(as.closers, fn)
}

// Close 停止房间服务并释放存储，可以重复调用
func (as *AppState) Close() {
	as.closeOnce.Do(func() {
		if as.RoomSvc != nil {
			as.RoomSvc.Close()
		}

		for i := len(as.closers) - 1; i >= 0; i-- {
			as.closers[i]()
		}
	})
}
