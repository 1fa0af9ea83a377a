package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"impostor-be/internal/service/dto"
	"impostor-be/internal/service/game"
)

var ErrNotInRoom = errors.New("当前不在任何房间中")

// Backend 是客户端依赖的房间服务，*service.RoomService 满足该接口
type Backend interface {
	Source
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (dto.CreateRoomResponse, error)
	JoinRoom(ctx context.Context, roomCode string, req dto.JoinRoomRequest) (dto.JoinRoomResponse, error)
}

// Client 把本地会话和房间服务组合起来
type Client struct {
	session  *Session
	backend  Backend
	clock    *Clock
	interval time.Duration
}

func New(session *Session, backend Backend, interval time.Duration) *Client {
	return &Client{
		session:  session,
		backend:  backend,
		clock:    NewClock(),
		interval: interval,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Clock() *Clock {
	return c.clock
}

func (c *Client) CreateRoom(ctx context.Context, name string) (game.PlayerView, error) {
	playerID, _, _ := c.session.Snapshot()

	resp, err := c.backend.CreateRoom(ctx, dto.CreateRoomRequest{
		PlayerID:    playerID,
		CreatorName: name,
	})
	if err != nil {
		return game.PlayerView{}, err
	}

	if err := c.remember(resp.RoomCode, resp.Creator.Name); err != nil {
		return game.PlayerView{}, err
	}

	return resp.View, nil
}

// JoinRoom 加入或重新连接房间，name 为空时使用会话中保存的名字
func (c *Client) JoinRoom(ctx context.Context, roomCode, name string) (game.PlayerView, error) {
	playerID, saved, _ := c.session.Snapshot()
	if name == "" {
		name = saved
	}

	resp, err := c.backend.JoinRoom(ctx, roomCode, dto.JoinRoomRequest{
		PlayerID:   playerID,
		JoinerName: name,
	})
	if err != nil {
		return game.PlayerView{}, err
	}

	if err := c.remember(resp.RoomCode, resp.Joiner.Name); err != nil {
		return game.PlayerView{}, err
	}

	return resp.View, nil
}

func (c *Client) remember(roomCode, name string) error {
	if err := c.session.SetName(name); err != nil {
		return err
	}

	return c.session.EnterRoom(roomCode)
}

// Do 对当前房间执行一次操作，返回操作后的视图
func (c *Client) Do(ctx context.Context, act game.Action) (game.PlayerView, error) {
	playerID, _, roomCode := c.session.Snapshot()
	if roomCode == "" {
		return game.PlayerView{}, ErrNotInRoom
	}

	rec, err := c.backend.Apply(ctx, roomCode, act)
	if err != nil {
		return game.PlayerView{}, err
	}

	return game.ViewFor(rec, playerID), nil
}

// Poller 返回当前房间的轮询器，调用方负责运行并在离开房间时取消
func (c *Client) Poller() (*Poller, error) {
	playerID, _, roomCode := c.session.Snapshot()
	if roomCode == "" {
		return nil, ErrNotInRoom
	}

	return NewPoller(c.backend, roomCode, playerID, c.interval, c.clock), nil
}

// Leave 离开当前房间并清除会话中的房间码
func (c *Client) Leave(ctx context.Context) error {
	playerID, _, roomCode := c.session.Snapshot()
	if roomCode == "" {
		return nil
	}

	_, err := c.backend.Apply(ctx, roomCode, game.LeaveGameRequest{PlayerID: playerID})
	if err != nil && !errors.Is(err, game.ErrNotFound) && !errors.Is(err, game.ErrNotMember) {
		return fmt.Errorf("离开房间失败: %w", err)
	}

	return c.session.Leave()
}
