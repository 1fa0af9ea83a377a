package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"impostor-be/internal/service"
	"impostor-be/internal/service/game"
	"impostor-be/internal/state"
	"impostor-be/internal/store"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// RoomSocket 为房间中的一名玩家推送视图，并接收该玩家的操作
// 连接参数：room_code 与 player_id
func RoomSocket(appState *state.AppState) iris.Handler {
	upgrader := newUpgrader(appState.Cfg.PublicURL)

	return func(ctx iris.Context) {
		roomCode := game.NormalizeRoomCode(ctx.URLParam("room_code"))
		playerID := ctx.URLParam("player_id")
		clientIP := ctx.RemoteAddr()

		// 升级之前确认房间存在且玩家在名单中
		rec, err := appState.RoomSvc.Get(ctx.Request().Context(), roomCode)
		if err != nil {
			status := iris.StatusServiceUnavailable
			if errors.Is(err, game.ErrNotFound) {
				status = iris.StatusNotFound
			}

			ctx.StopWithJSON(status, iris.Map{"error": err.Error()})
			return
		}
		if !rec.HasPlayer(playerID) {
			ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"error": game.ErrNotMember.Error()})
			return
		}

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadLimit(MAX_MESSAGE_SIZE)
		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		zap.L().Info(
			"玩家连接到房间",
			zap.String("client_ip", clientIP),
			zap.String("room_code", roomCode),
			zap.String("player_id", playerID),
		)

		sessCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := &session{
			appState: appState,
			roomCode: roomCode,
			playerID: playerID,
			clientIP: clientIP,
			respCh:   make(chan game.ResponseWrapper, RESP_BUFFER),
			nudgeCh:  make(chan struct{}, 1),
		}

		go s.writeLoop(sessCtx, conn)
		go s.pushLoop(sessCtx)

		s.readLoop(sessCtx, conn)

		zap.L().Info(
			"WebSocket连接处理完成",
			zap.String("client_ip", clientIP),
			zap.String("player_id", playerID),
		)
	}
}

type session struct {
	appState *state.AppState
	roomCode string
	playerID string
	clientIP string

	respCh  chan game.ResponseWrapper
	nudgeCh chan struct{}
}

func (s *session) send(ctx context.Context, resp game.ResponseWrapper) {
	select {
	case s.respCh <- resp:
	case <-ctx.Done():
	}
}

// nudge 让推送协程立即重新读取记录
func (s *session) nudge() {
	select {
	case s.nudgeCh <- struct{}{}:
	default:
	}
}

func (s *session) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Debug(
				"WebSocket写入协程退出",
				zap.String("client_ip", s.clientIP),
			)
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Warn(
					"发送心跳失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
				conn.Close()
				return
			}

		case resp := <-s.respCh:
			conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := conn.WriteJSON(resp); err != nil {
				zap.L().Warn(
					"发送消息失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
				conn.Close()
				return
			}

			if isTerminal(resp.RespType) {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, resp.RespType),
					time.Now().Add(WRITE_TIMEOUT),
				)
				// 关闭底层连接以结束读协程
				conn.Close()
				return
			}
		}
	}
}

// pushLoop 在记录版本变化时推送视图
// 存储支持变更通知时使用通知，同时保留定时轮询用于驱动超时
func (s *session) pushLoop(ctx context.Context) {
	var changed <-chan struct{}
	if watcher, ok := s.appState.Store.(store.Watcher); ok {
		changed = watcher.Watch(ctx, service.RoomKey(s.roomCode))
	}

	ticker := time.NewTicker(s.appState.Cfg.PollInterval)
	defer ticker.Stop()

	lastVersion := int64(-1)

	for {
		rec, err := s.appState.RoomSvc.Get(ctx, s.roomCode)

		switch {
		case errors.Is(err, game.ErrNotFound):
			s.send(ctx, game.WrapResponse(game.RESP_ROOM_GONE, nil))
			return

		case err != nil:
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn(
				"读取房间失败",
				zap.String("room_code", s.roomCode),
				zap.Error(err),
			)

		case rec.IsKicked(s.playerID) || !rec.HasPlayer(s.playerID):
			s.send(ctx, game.WrapResponse(game.RESP_KICKED, nil))
			return

		default:
			if rec.Version != lastVersion {
				lastVersion = rec.Version
				s.send(ctx, game.WrapResponse(game.RESP_GAME_STATE, game.ViewFor(rec, s.playerID)))
			}

			if act := game.DueTimeout(rec, s.playerID, time.Now()); act != nil {
				next, err := s.appState.RoomSvc.Apply(ctx, s.roomCode, act)
				switch {
				case err != nil && ctx.Err() == nil:
					zap.L().Debug(
						"超时操作未生效",
						zap.String("room_code", s.roomCode),
						zap.String("request_type", act.ReqType()),
						zap.Error(err),
					)
				case err == nil && next.Version != rec.Version:
					s.nudge()
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-changed:
			if !ok {
				changed = nil
			}
		case <-ticker.C:
		case <-s.nudgeCh:
		}
	}
}

func (s *session) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
			) {
				zap.L().Warn(
					"读取消息失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
			}

			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			s.send(ctx, game.WrapErrResponse("无效的请求格式"))
			continue
		}

		act, err := game.UnwrapRequest(wrapper)
		if err != nil {
			s.send(ctx, game.WrapErrResponse(err.Error()))
			continue
		}

		// 操作者固定为建立连接的玩家
		act = game.WithActor(act, s.playerID)

		if _, err := s.appState.RoomSvc.Apply(ctx, s.roomCode, act); err != nil {
			zap.L().Debug(
				"操作被拒绝",
				zap.String("player_id", s.playerID),
				zap.String("request_type", wrapper.ReqType),
				zap.Error(err),
			)

			s.send(ctx, game.WrapErrResponse(err.Error()))
			continue
		}

		s.nudge()
	}
}

// isTerminal 表示发送该响应后应当关闭连接
func isTerminal(respType string) bool {
	return respType == game.RESP_KICKED || respType == game.RESP_ROOM_GONE
}
