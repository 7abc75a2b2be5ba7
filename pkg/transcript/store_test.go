package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndSnapshot(t *testing.T) {
	s := NewStore()
	require.Equal(t, 0, s.Len())
	require.Equal(t, uint64(0), s.Version())
	_, ok := s.Last()
	require.False(t, ok)

	s.Append(NewUserMessage("hi"))
	s.Append(NewBotMessage("hello"))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, RoleUser, snap[0].Role)
	require.Equal(t, "hi", snap[0].Content)
	require.Equal(t, RoleBot, snap[1].Role)
	require.Equal(t, "hello", snap[1].Content)
	require.NotEqual(t, snap[0].ID, snap[1].ID)
	require.Equal(t, uint64(2), s.Version())

	last, ok := s.Last()
	require.True(t, ok)
	require.Equal(t, "hello", last.Content)

	u, ok := s.LastOf(RoleUser)
	require.True(t, ok)
	require.Equal(t, "hi", u.Content)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Append(NewUserMessage("original"))

	snap := s.Snapshot()
	snap[0].Content = "mutated"
	snap = append(snap, NewBotMessage("extra"))
	require.Len(t, snap, 2)

	again := s.Snapshot()
	require.Len(t, again, 1)
	require.Equal(t, "original", again[0].Content)
}

func TestStore_ConcurrentAppendsKeepEveryMessage(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(NewUserMessage("x"))
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
	require.Equal(t, uint64(50), s.Version())
}

func TestRole_Valid(t *testing.T) {
	require.True(t, RoleUser.Valid())
	require.True(t, RoleBot.Valid())
	require.False(t, Role("assistant").Valid())
	require.Equal(t, "bot", RoleBot.String())
}
