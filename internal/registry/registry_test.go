package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinThenLeaveExcludesParticipant(t *testing.T) {
	r := New(false)

	r.Join("abc", "p1")
	r.Join("abc", "p2")
	require.Equal(t, []string{"p1", "p2"}, r.Members("abc"))

	assert.True(t, r.Leave("abc", "p1"))
	assert.Equal(t, []string{"p2"}, r.Members("abc"))
}

func TestJoinIsIdempotent(t *testing.T) {
	r := New(true)

	r.Join("abc", "p1")
	r.Join("abc", "p1")

	assert.Equal(t, []string{"p1"}, r.Members("abc"))
	assert.Equal(t, 1, r.Len())
}

func TestLeaveUnknownIsNoop(t *testing.T) {
	r := New(true)

	assert.False(t, r.Leave("missing", "p1"))

	r.Join("abc", "p1")
	assert.False(t, r.Leave("abc", "p2"))
	assert.Equal(t, []string{"p1"}, r.Members("abc"))
}

func TestMembersUnknownRoomIsEmpty(t *testing.T) {
	r := New(true)

	members := r.Members("nowhere")
	assert.NotNil(t, members)
	assert.Empty(t, members)
	assert.False(t, r.Exists("nowhere"))
}

func TestEmptyRoomReaping(t *testing.T) {
	t.Run("reap enabled", func(t *testing.T) {
		r := New(true)
		r.Join("abc", "p1")
		r.Leave("abc", "p1")

		assert.False(t, r.Exists("abc"))
		assert.Zero(t, r.Len())
		assert.Empty(t, r.Members("abc"))
	})

	t.Run("reap disabled keeps empty entry", func(t *testing.T) {
		r := New(false)
		r.Join("abc", "p1")
		r.Leave("abc", "p1")

		assert.True(t, r.Exists("abc"))
		assert.Equal(t, []RoomInfo{{RoomID: "abc", Members: 0}}, r.Rooms())
		assert.Empty(t, r.Members("abc"))
	})
}

func TestRoomsSnapshotIsSorted(t *testing.T) {
	r := New(true)
	r.Join("zeta", "p1")
	r.Join("alpha", "p1")
	r.Join("alpha", "p2")

	assert.Equal(t, []RoomInfo{
		{RoomID: "alpha", Members: 2},
		{RoomID: "zeta", Members: 1},
	}, r.Rooms())
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := New(true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i%5)
			p := fmt.Sprintf("p-%d", i)
			r.Join(room, p)
			_ = r.Members(room)
			r.Leave(room, p)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, r.Len())
}
