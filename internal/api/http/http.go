package http

import (
	"context"
	"errors"
	"os"
	"time"

	"impostor-be/internal/api/http/websocket"
	"impostor-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

// NewApp 注册所有路由，不监听端口
func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	if dir := appState.Cfg.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			app.HandleDir(
				"/",
				iris.Dir(dir),
				iris.DirOptions{
					IndexName: "index.html",
					SPA:       true,
					Compress:  true,
				},
			)
		}
	}

	limiter := NewRateLimiter(appState.Cfg.RateLimit.RPS, appState.Cfg.RateLimit.Burst)

	api := app.Party("/api/v1")

	api.Get("/categories", ListCategories())

	api.Post("/rooms", limiter.Handler(), CreateRoom(appState))
	api.Get("/rooms/{code}", GetRoom(appState))
	api.Post("/rooms/{code}/join", limiter.Handler(), JoinRoom(appState))
	api.Post("/rooms/{code}/actions", limiter.Handler(), ApplyAction(appState))
	api.Get("/rooms/{code}/qr", RoomQRCode(appState))

	// 原始记录包含谜底与内鬼名单，默认不开放
	if appState.Cfg.Store.ExposeKV {
		api.Get("/kv/{key}", GetKV(appState))
		api.Put("/kv/{key}", limiter.Handler(), PutKV(appState))
	}

	api.Get("/ws/room", websocket.RoomSocket(appState))

	return app
}

// RunServer 启动服务，ctx 结束后优雅关闭
func RunServer(ctx context.Context, appState *state.AppState) error {
	app := NewApp(appState)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()

		zap.L().Info("Shutting down server")

		if err := app.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("Failed to shut down server", zap.Error(err))
		}
	}()

	addr := appState.Cfg.Addr()
	zap.S().Infof("服务监听于 %s", addr)

	err := app.Listen(addr, iris.WithoutInterruptHandler, iris.WithoutStartupLog)
	if err != nil && !errors.Is(err, iris.ErrServerClosed) {
		return err
	}

	return nil
}
