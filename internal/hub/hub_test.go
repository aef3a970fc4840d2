package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub() *Hub {
	return New(zap.NewNop().Sugar())
}

func drain(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case b := <-c.Outbound():
		var env Envelope
		require.NoError(t, json.Unmarshal(b, &env))
		return env
	default:
		t.Fatal("expected a payload on the client channel")
		return Envelope{}
	}
}

func TestPublishReachesSubscribers(t *testing.T) {
	h := testHub()
	a := NewClient("alice", 4)
	b := NewClient("bob", 4)
	h.Register(a, []string{UserTopic("alice"), GroupTopic("g1")})
	h.Register(b, []string{UserTopic("bob"), GroupTopic("g1")})

	h.Publish(GroupTopic("g1"), Envelope{Type: TypeGroupUpdated, Payload: "snapshot"})

	assert.Equal(t, TypeGroupUpdated, drain(t, a).Type)
	assert.Equal(t, TypeGroupUpdated, drain(t, b).Type)
}

func TestPublishToAbsentTopicDeliversNothing(t *testing.T) {
	h := testHub()
	a := NewClient("alice", 4)
	h.Register(a, []string{UserTopic("alice")})

	// nobody subscribed to bob's topic; must not error or leak anywhere
	h.Publish(UserTopic("bob"), Envelope{Type: TypeMessage, Payload: "hi"})

	assert.Empty(t, a.Outbound())
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	h := testHub()
	a := NewClient("alice", 1)
	h.Register(a, []string{UserTopic("alice")})

	h.Publish(UserTopic("alice"), Envelope{Type: TypeMessage, Payload: 1})
	h.Publish(UserTopic("alice"), Envelope{Type: TypeMessage, Payload: 2})

	// buffer of one: second payload dropped, first intact
	env := drain(t, a)
	assert.EqualValues(t, 1, env.Payload)
	assert.Empty(t, a.Outbound())
}

func TestUnregisterIsIdempotentAndClosesChannel(t *testing.T) {
	h := testHub()
	a := NewClient("alice", 4)
	h.Register(a, []string{UserTopic("alice")})
	require.True(t, h.Connected("alice"))

	h.Unregister(a)
	h.Unregister(a)

	assert.False(t, h.Connected("alice"))
	_, open := <-a.Outbound()
	assert.False(t, open)

	// publishing after unregister is a silent no-op
	h.Publish(UserTopic("alice"), Envelope{Type: TypeMessage, Payload: "late"})
}

func TestConnectedTracksMultipleDevices(t *testing.T) {
	h := testHub()
	phone := NewClient("alice", 4)
	laptop := NewClient("alice", 4)
	h.Register(phone, []string{UserTopic("alice")})
	h.Register(laptop, []string{UserTopic("alice")})

	h.Unregister(phone)
	assert.True(t, h.Connected("alice"), "second device still live")

	h.Unregister(laptop)
	assert.False(t, h.Connected("alice"))
}

func TestBothDevicesReceiveUserTopicPush(t *testing.T) {
	h := testHub()
	phone := NewClient("alice", 4)
	laptop := NewClient("alice", 4)
	h.Register(phone, []string{UserTopic("alice")})
	h.Register(laptop, []string{UserTopic("alice")})

	h.Publish(UserTopic("alice"), Envelope{Type: TypeMessage, Payload: "sync"})

	assert.Equal(t, TypeMessage, drain(t, phone).Type)
	assert.Equal(t, TypeMessage, drain(t, laptop).Type)
}
