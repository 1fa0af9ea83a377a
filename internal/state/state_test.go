package state

import (
	"testing"

	"impostor-be/internal/config"
	"impostor-be/internal/service"
	"impostor-be/internal/service/game"
	"impostor-be/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestAppState_Close(t *testing.T) {
	ms := store.NewMemoryStore(0, 0)
	rs := service.NewRoomService(service.NewGameRepository(ms), game.NewGameMachine(game.NewRuntime()), 0)

	as := NewAppState(&config.AppConfig{}, rs, ms)

	var order []string
	as.OnClose(func() { order = append(order, "store") })
	as.OnClose(func() { order = append(order, "cache") })

	as.Close()
	as.Close()

	assert.Equal(t, []string{"cache", "store"}, order)
}
