package http

import (
	"errors"
	"net/url"
	"strings"

	"impostor-be/internal/service/dto"
	"impostor-be/internal/service/game"
	"impostor-be/internal/state"

	"github.com/kataras/iris/v12"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const QR_SIZE = 320

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return iris.StatusNotFound
	case errors.Is(err, game.ErrNotHost),
		errors.Is(err, game.ErrNotMember),
		errors.Is(err, game.ErrBanned):
		return iris.StatusForbidden
	}

	switch game.Classify(err) {
	case game.CLASS_VALIDATION:
		return iris.StatusBadRequest
	case game.CLASS_STATE:
		return iris.StatusConflict
	case game.CLASS_PERSISTENCE:
		return iris.StatusServiceUnavailable
	}

	return iris.StatusInternalServerError
}

func writeError(ctx iris.Context, err error) {
	status := statusFor(err)
	if status >= iris.StatusInternalServerError {
		zap.L().Warn(
			"Request failed",
			zap.String("path", ctx.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	ctx.StopWithJSON(status, dto.ErrorResponse{
		Error: err.Error(),
		Class: string(game.Classify(err)),
	})
}

func badRequest(ctx iris.Context) {
	ctx.StopWithJSON(iris.StatusBadRequest, dto.ErrorResponse{
		Error: "请求参数无效",
		Class: string(game.CLASS_VALIDATION),
	})
}

func CreateRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.CreateRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.RoomSvc.CreateRoom(ctx.Request().Context(), req)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(resp)
	}
}

func JoinRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.JoinRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.RoomSvc.JoinRoom(ctx.Request().Context(), ctx.Params().Get("code"), req)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		view, err := appState.RoomSvc.GetView(
			ctx.Request().Context(),
			ctx.Params().Get("code"),
			ctx.URLParam("player_id"),
		)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(view)
	}
}

func ApplyAction(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.ActionRequest

		if err := ctx.ReadJSON(&req); err != nil {
			badRequest(ctx)
			return
		}

		resp, err := appState.RoomSvc.ApplyRequest(ctx.Request().Context(), ctx.Params().Get("code"), req)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.JSON(resp)
	}
}

func ListCategories() iris.Handler {
	return func(ctx iris.Context) {
		language := ctx.URLParamDefault("language", game.DEFAULT_LANGUAGE)

		cats := game.ListCategories(language)
		if len(cats) == 0 {
			ctx.StopWithJSON(iris.StatusNotFound, dto.ErrorResponse{Error: "不支持的语言"})
			return
		}

		ctx.JSON(cats)
	}
}

// inviteURL 优先使用配置的外部地址，否则按请求的协议和 Host 拼接
func inviteURL(ctx iris.Context, publicURL, roomCode string) string {
	base := strings.TrimRight(publicURL, "/")
	if base == "" {
		scheme := "http"
		if ctx.Request().TLS != nil {
			scheme = "https"
		}
		if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		base = scheme + "://" + ctx.Host()
	}

	return base + "/?room=" + url.QueryEscape(roomCode)
}

// RoomQRCode 返回房间邀请链接的二维码 PNG
func RoomQRCode(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		rec, err := appState.RoomSvc.Get(ctx.Request().Context(), ctx.Params().Get("code"))
		if err != nil {
			writeError(ctx, err)
			return
		}

		png, err := qrcode.Encode(inviteURL(ctx, appState.Cfg.PublicURL, rec.RoomCode), qrcode.Medium, QR_SIZE)
		if err != nil {
			writeError(ctx, err)
			return
		}

		ctx.ContentType("image/png")
		ctx.Write(png)
	}
}
