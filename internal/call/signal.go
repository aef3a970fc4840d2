package call

import (
	"encoding/json"

	"github.com/voxsynq/realtime/internal/apperr"
)

// Signaling payloads are a closed tagged union. They live for exactly one
// relay hop and are never persisted.

type SignalKind string

const (
	KindOffer  SignalKind = "CALL_OFFER"
	KindAnswer SignalKind = "CALL_ANSWER"
	KindICE    SignalKind = "CALL_ICE"
	KindEnd    SignalKind = "CALL_END"
	KindReject SignalKind = "CALL_REJECT"
)

// Signal is one call-control payload addressed from one identity to another.
type Signal interface {
	Kind() SignalKind
	From() string
	To() string
}

type Offer struct {
	FromUserID   string `json:"fromUserId"`
	ToUserID     string `json:"toUserId"`
	SDP          string `json:"sdp"`
	CallID       string `json:"callId,omitempty"`
	FromUsername string `json:"fromUsername,omitempty"`
}

func (o Offer) Kind() SignalKind { return KindOffer }
func (o Offer) From() string     { return o.FromUserID }
func (o Offer) To() string       { return o.ToUserID }

type Answer struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	SDP        string `json:"sdp"`
	CallID     string `json:"callId,omitempty"`
}

func (a Answer) Kind() SignalKind { return KindAnswer }
func (a Answer) From() string     { return a.FromUserID }
func (a Answer) To() string       { return a.ToUserID }

type IceCandidate struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Candidate  string `json:"iceCandidate"`
	CallID     string `json:"callId,omitempty"`
}

func (i IceCandidate) Kind() SignalKind { return KindICE }
func (i IceCandidate) From() string     { return i.FromUserID }
func (i IceCandidate) To() string       { return i.ToUserID }

type End struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	CallID     string `json:"callId,omitempty"`
}

func (e End) Kind() SignalKind { return KindEnd }
func (e End) From() string     { return e.FromUserID }
func (e End) To() string       { return e.ToUserID }

type Reject struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	CallID     string `json:"callId,omitempty"`
}

func (r Reject) Kind() SignalKind { return KindReject }
func (r Reject) From() string     { return r.FromUserID }
func (r Reject) To() string       { return r.ToUserID }

// wireSignal is the flat frame clients send; only the fields the tag needs
// survive decoding.
type wireSignal struct {
	Type         SignalKind `json:"type"`
	FromUserID   string     `json:"fromUserId"`
	ToUserID     string     `json:"toUserId"`
	SDP          string     `json:"sdp,omitempty"`
	Candidate    string     `json:"iceCandidate,omitempty"`
	CallID       string     `json:"callId,omitempty"`
	FromUsername string     `json:"fromUsername,omitempty"`
}

// Decode parses a signaling frame into its typed variant. Unknown tags and
// missing addressing are invalid-argument errors.
func Decode(data []byte) (Signal, error) {
	var w wireSignal
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, "malformed signal", err)
	}
	if w.FromUserID == "" || w.ToUserID == "" {
		return nil, apperr.InvalidArg("signal missing from/to")
	}
	switch w.Type {
	case KindOffer:
		return Offer{FromUserID: w.FromUserID, ToUserID: w.ToUserID, SDP: w.SDP, CallID: w.CallID, FromUsername: w.FromUsername}, nil
	case KindAnswer:
		return Answer{FromUserID: w.FromUserID, ToUserID: w.ToUserID, SDP: w.SDP, CallID: w.CallID}, nil
	case KindICE:
		return IceCandidate{FromUserID: w.FromUserID, ToUserID: w.ToUserID, Candidate: w.Candidate, CallID: w.CallID}, nil
	case KindEnd:
		return End{FromUserID: w.FromUserID, ToUserID: w.ToUserID, CallID: w.CallID}, nil
	case KindReject:
		return Reject{FromUserID: w.FromUserID, ToUserID: w.ToUserID, CallID: w.CallID}, nil
	default:
		return nil, apperr.InvalidArg("unknown signal type: " + string(w.Type))
	}
}

// encode rebuilds the wire frame for the single forwarding hop.
func encode(sig Signal) wireSignal {
	w := wireSignal{Type: sig.Kind(), FromUserID: sig.From(), ToUserID: sig.To()}
	switch v := sig.(type) {
	case Offer:
		w.SDP = v.SDP
		w.CallID = v.CallID
		w.FromUsername = v.FromUsername
	case Answer:
		w.SDP = v.SDP
		w.CallID = v.CallID
	case IceCandidate:
		w.Candidate = v.Candidate
		w.CallID = v.CallID
	case End:
		w.CallID = v.CallID
	case Reject:
		w.CallID = v.CallID
	}
	return w
}
