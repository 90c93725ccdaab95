package bridge

import "encoding/json"

// Frame types exchanged with a wallet agent.
const (
	frameHello    = "hello"
	frameRequest  = "request"
	frameResponse = "response"
	framePush     = "push"
)

// Frame is the wire envelope for all bridge traffic. Exactly one shape per
// Type: hello carries Wallet/Connected, request carries ID/Method/Params,
// response carries ID/Result/Error, push carries Event/Payload.
type Frame struct {
	Type string `json:"type"`

	// hello
	Wallet    string `json:"wallet,omitempty"`
	Connected bool   `json:"connected,omitempty"`

	// request / response correlation
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	// push
	Event   string `json:"event,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// connectResult is the response payload of a connect request.
type connectResult struct {
	PublicKey string `json:"publicKey"`
}

// signatureResult is the response payload of a sign-and-send request.
type signatureResult struct {
	Signature string `json:"signature"`
}
