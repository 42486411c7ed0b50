package protocol

import "encoding/json"

// Serializer defines the contract for serializing and deserializing wire records.
// This allows tick archives and reports to be stored in the format the surrounding
// tooling prefers (JSON, Protobuf, etc.) while the engine only sees decoded values.
type Serializer interface {
	// Marshal serializes a Go struct (e.g. TickRecord) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer implements Serializer with encoding/json.
type DefaultJSONSerializer struct{}

func (DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
