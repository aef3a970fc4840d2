package call

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxsynq/realtime/internal/apperr"
)

func TestDecodeOffer(t *testing.T) {
	raw := []byte(`{"type":"CALL_OFFER","fromUserId":"1","toUserId":"2","sdp":"v=0","fromUsername":"alice"}`)

	sig, err := Decode(raw)
	require.NoError(t, err)
	offer, ok := sig.(Offer)
	require.True(t, ok)
	assert.Equal(t, KindOffer, sig.Kind())
	assert.Equal(t, "1", sig.From())
	assert.Equal(t, "2", sig.To())
	assert.Equal(t, "v=0", offer.SDP)
	assert.Equal(t, "alice", offer.FromUsername)
}

func TestDecodeAllVariants(t *testing.T) {
	cases := []struct {
		raw  string
		kind SignalKind
	}{
		{`{"type":"CALL_ANSWER","fromUserId":"2","toUserId":"1","sdp":"v=0"}`, KindAnswer},
		{`{"type":"CALL_ICE","fromUserId":"1","toUserId":"2","iceCandidate":"candidate:0"}`, KindICE},
		{`{"type":"CALL_END","fromUserId":"1","toUserId":"2","callId":"c1"}`, KindEnd},
		{`{"type":"CALL_REJECT","fromUserId":"2","toUserId":"1"}`, KindReject},
	}
	for _, tc := range cases {
		sig, err := Decode([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.kind, sig.Kind())
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"CALL_HOLD","fromUserId":"1","toUserId":"2"}`))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestDecodeRequiresAddressing(t *testing.T) {
	_, err := Decode([]byte(`{"type":"CALL_OFFER","sdp":"v=0"}`))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestEncodeRoundTripsVariantFields(t *testing.T) {
	sigs := []Signal{
		Offer{FromUserID: "1", ToUserID: "2", SDP: "v=0", CallID: "c1", FromUsername: "alice"},
		Answer{FromUserID: "2", ToUserID: "1", SDP: "v=0", CallID: "c1"},
		IceCandidate{FromUserID: "1", ToUserID: "2", Candidate: "candidate:0", CallID: "c1"},
		End{FromUserID: "1", ToUserID: "2", CallID: "c1"},
		Reject{FromUserID: "2", ToUserID: "1", CallID: "c1"},
	}
	for _, sig := range sigs {
		data, err := json.Marshal(encode(sig))
		require.NoError(t, err)
		back, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, sig, back)
	}
}
