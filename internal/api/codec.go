package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec serializes RepositoryService messages, which are plain Go
// structs, with encoding/json. It registers under the name "json" so the
// Connect protocol negotiates it for application/json requests.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return nil
}

// MarshalStable lets clients send side-effect free procedures as HTTP GET.
// encoding/json output is already deterministic for structs and sorted maps.
func (c JSONCodec) MarshalStable(msg any) ([]byte, error) {
	return c.Marshal(msg)
}

func (JSONCodec) IsBinary() bool { return false }
