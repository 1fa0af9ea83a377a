package game

import (
	"strings"

	"github.com/google/uuid"
)

const ROOM_CODE_ALPHABET = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const ROOM_CODE_LENGTH = 4

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// GenPlayerID 生成玩家 ID，取 UUID 末尾的随机部分
func GenPlayerID() string {
	id := GenID()
	return id[len(id)-8:]
}

func GenRoomCode(rt Runtime) string {
	var sb strings.Builder
	for range ROOM_CODE_LENGTH {
		sb.WriteByte(ROOM_CODE_ALPHABET[rt.intN(len(ROOM_CODE_ALPHABET))])
	}

	return sb.String()
}

// NormalizeRoomCode 统一大小写并校验格式，不合法时返回空字符串
func NormalizeRoomCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != ROOM_CODE_LENGTH {
		return ""
	}

	for _, c := range code {
		if !strings.ContainsRune(ROOM_CODE_ALPHABET, c) {
			return ""
		}
	}

	return code
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}

	return false
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}

func playerIDs(players []Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}

	return ids
}
