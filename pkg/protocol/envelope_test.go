package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := New(KindHello, Hello{
		ClientID:     "dsp-01",
		DisplayName:  "Lobby East",
		Capabilities: []string{"reboot"},
	})
	require.NoError(t, err)
	require.Empty(t, env.CorrelationID)
	require.False(t, env.Timestamp.IsZero())

	data, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindHello, decoded.Type)

	var hello Hello
	require.NoError(t, DecodePayload(decoded, &hello))
	assert.Equal(t, "dsp-01", hello.ClientID)
	assert.Equal(t, "Lobby East", hello.DisplayName)
	assert.Equal(t, []string{"reboot"}, hello.Capabilities)
}

func TestNewRequestAssignsCorrelationID(t *testing.T) {
	first, err := NewRequest(KindHeartbeat, Heartbeat{Sequence: 1})
	require.NoError(t, err)

	second, err := NewRequest(KindHeartbeat, Heartbeat{Sequence: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, first.CorrelationID)
	assert.NotEmpty(t, second.CorrelationID)
	assert.NotEqual(t, first.CorrelationID, second.CorrelationID)
}

func TestReplyCarriesRequestCorrelation(t *testing.T) {
	req, err := NewRequest(KindCommand, Command{Name: CommandReboot})
	require.NoError(t, err)

	reply, err := Reply(req, KindCommandResult, CommandResult{Name: CommandReboot, Success: true})
	require.NoError(t, err)

	assert.Equal(t, KindCommandResult, reply.Type)
	assert.Equal(t, req.CorrelationID, reply.CorrelationID)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "not json", data: []byte("not json at all")},
		{name: "empty", data: nil},
		{name: "missing type", data: []byte(`{"payload":{}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestDecodeAcceptsUnknownKind(t *testing.T) {
	// Forward compatibility: a newer peer may send kinds this build does
	// not know. Decode must hand them back so the caller can skip them.
	data, err := json.Marshal(map[string]interface{}{
		"type":    "hologram_push",
		"payload": map[string]string{"x": "y"},
	})
	require.NoError(t, err)

	env, decodeErr := Decode(data)
	require.NoError(t, decodeErr)
	assert.False(t, Known(env.Type))
}

func TestKnown(t *testing.T) {
	kinds := []Kind{
		KindHello, KindHelloAck, KindHeartbeat, KindHeartbeatAck,
		KindContentPush, KindCommand, KindCommandResult, KindStatusReport,
	}

	for _, k := range kinds {
		assert.True(t, Known(k), "kind %s should be known", k)
	}

	assert.False(t, Known(Kind("bogus")))
}
