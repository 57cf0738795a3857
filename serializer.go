package workq

import "encoding/json"

// Serializer is the payload codec collaborator (§6.3): serialize/deserialize
// round-trips a payload through the bytes stored under the payload key.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// jsonSerializer is the default Serializer, backed by encoding/json, the
// way the teacher's message envelopes round-trip through json tags.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerializer) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
