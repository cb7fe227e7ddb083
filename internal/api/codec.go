// Package api exposes the daemon's control surface as gRPC services over
// the account Unix socket: session status, chat and feed access, sending,
// and playback actions.
//
// The services run over a JSON codec registered with grpc instead of
// protoc-generated messages; requests and responses are the plain structs
// in types.go. Clients select the codec per call with the "json"
// content-subtype, which Client does automatically.
package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }
