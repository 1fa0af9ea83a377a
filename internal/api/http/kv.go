package http

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"impostor-be/internal/service"
	"impostor-be/internal/service/dto"
	"impostor-be/internal/store"
	"impostor-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

func kvKey(ctx iris.Context) (string, bool) {
	key := ctx.Params().Get("key")
	if !strings.HasPrefix(key, service.ROOM_KEY_PREFIX) || len(key) == len(service.ROOM_KEY_PREFIX) {
		ctx.StopWithJSON(iris.StatusBadRequest, dto.ErrorResponse{Error: "不支持的键"})
		return "", false
	}

	return key, true
}

// GetKV 原样返回存储中的记录，供远程存储客户端使用
func GetKV(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		key, ok := kvKey(ctx)
		if !ok {
			return
		}

		value, err := appState.Store.Get(ctx.Request().Context(), key)
		if errors.Is(err, store.ErrNotFound) {
			ctx.StopWithStatus(iris.StatusNotFound)
			return
		}
		if err != nil {
			zap.L().Warn("读取键值失败", zap.String("key", key), zap.Error(err))
			ctx.StopWithStatus(iris.StatusServiceUnavailable)
			return
		}

		ctx.Header("ETag", store.ETag(value))
		ctx.ContentType("application/json")
		ctx.Write(value)
	}
}

// PutKV 写入记录，支持 If-Match 与 If-None-Match: * 条件写入
func PutKV(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		key, ok := kvKey(ctx)
		if !ok {
			return
		}

		body, err := ctx.GetBody()
		if err != nil || len(body) > store.MAX_VALUE_SIZE || !json.Valid(body) {
			ctx.StopWithJSON(iris.StatusBadRequest, dto.ErrorResponse{Error: "记录必须是合法的 JSON"})
			return
		}

		reqCtx := ctx.Request().Context()
		ifMatch := ctx.GetHeader("If-Match")
		ifNoneMatch := ctx.GetHeader("If-None-Match")

		switch {
		case ifNoneMatch == "*":
			err = conditionalPut(reqCtx, appState.Store, key, nil, body)

		case ifMatch != "":
			var current []byte

			current, err = appState.Store.Get(reqCtx, key)
			if errors.Is(err, store.ErrNotFound) {
				err = store.ErrConflict
			} else if err == nil {
				if store.ETag(current) != ifMatch {
					err = store.ErrConflict
				} else {
					err = conditionalPut(reqCtx, appState.Store, key, current, body)
				}
			}

		default:
			err = appState.Store.Set(reqCtx, key, body)
		}

		if errors.Is(err, store.ErrConflict) {
			ctx.StopWithStatus(iris.StatusPreconditionFailed)
			return
		}
		if err != nil {
			zap.L().Warn("写入键值失败", zap.String("key", key), zap.Error(err))
			ctx.StopWithStatus(iris.StatusServiceUnavailable)
			return
		}

		ctx.Header("ETag", store.ETag(body))
		ctx.StatusCode(iris.StatusNoContent)
	}
}

// conditionalPut 在存储支持时使用原子的条件写入，否则退化为先读后写
func conditionalPut(ctx context.Context, st store.Store, key string, old, value []byte) error {
	if swapper, ok := st.(store.Swapper); ok {
		return swapper.CompareAndSwap(ctx, key, old, value)
	}

	if old == nil {
		_, err := st.Get(ctx, key)
		if err == nil {
			return store.ErrConflict
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	return st.Set(ctx, key, value)
}
