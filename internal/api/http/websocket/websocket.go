package websocket

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// 心跳间隔
	HEARTBEAT_INTERVAL = 30 * time.Second
	// 心跳超时时间
	HEARTBEAT_TIMEOUT = 45 * time.Second
	// 单次写入的超时时间
	WRITE_TIMEOUT = 10 * time.Second
	// 单条客户端消息的最大长度
	MAX_MESSAGE_SIZE = 16 * 1024
	// 响应通道缓冲
	RESP_BUFFER = 64
)

// newUpgrader 配置了外部地址时只接受来自该地址的浏览器连接
// 没有 Origin 头的非浏览器客户端始终放行
func newUpgrader(publicURL string) *websocket.Upgrader {
	var allowed string
	if u, err := url.Parse(publicURL); err == nil {
		allowed = u.Host
	}

	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowed == "" || origin == "" {
				return true
			}

			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, allowed)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

var heartbeatHandler = func(conn *websocket.Conn) func(string) error {
	return func(string) error {
		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		return nil
	}
}
