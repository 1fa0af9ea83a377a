package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"impostor-be/internal/service/game"
)

// Session 是客户端本地保存的身份，玩家 ID 只生成一次，重连时复用
type Session struct {
	mu   sync.Mutex
	path string

	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	RoomCode string `json:"room_code,omitempty"`
}

// LoadOrCreateSession 读取 path 处的会话文件，不存在时生成新的玩家 ID 并写入
func LoadOrCreateSession(path string) (*Session, error) {
	s := &Session{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.PlayerID = game.GenPlayerID()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil

	case err != nil:
		return nil, fmt.Errorf("读取会话文件失败: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("解析会话文件失败: %w", err)
	}

	if strings.TrimSpace(s.PlayerID) == "" {
		s.PlayerID = game.GenPlayerID()
		if err := s.save(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Session) Snapshot() (playerID, name, roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.PlayerID, s.Name, s.RoomCode
}

func (s *Session) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Name = name
	return s.save()
}

func (s *Session) EnterRoom(roomCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RoomCode = roomCode
	return s.save()
}

// Leave 清除当前房间，玩家 ID 保持不变
func (s *Session) Leave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RoomCode = ""
	return s.save()
}

// save 先写临时文件再改名，需持有锁
func (s *Session) save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("编码会话失败: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建会话目录失败: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("写入会话文件失败: %w", err)
	}

	return os.Rename(tmp, s.path)
}
