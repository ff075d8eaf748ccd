// Package connect provides the Connect RPC services of the repertoire.
//
// Messages are plain Go structs encoded as JSON, so the services can be
// called with curl or any Connect client without generated code.
package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

// CodecName is the codec registered for the services.
const CodecName = "json"

type jsonCodec struct{}

// Codec returns the JSON codec shared by handlers and clients.
func Codec() connect.Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string {
	return CodecName
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

// Unmarshal treats an empty body as an empty message.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
