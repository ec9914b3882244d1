package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

// jsonCodec encodes plain Go message structs. It is registered under the
// name "json", replacing connect's protobuf JSON codec, so both the Connect
// unary and streaming JSON content types use it.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %T", msg)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %T", msg)
	}
	return nil
}

// Codec is the codec every service and client in this package uses.
var Codec connect.Codec = jsonCodec{}
