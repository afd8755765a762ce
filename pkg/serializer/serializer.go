package serializer

import "github.com/bytedance/sonic"

// Serializer converts typed events and responses to and from their wire
// representation. The hosting core never assumes a specific format.
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	Deserialize(data []byte, v interface{}) error
}

// JSON is the default serializer, backed by sonic
type JSON struct{}

// NewJSON creates the default JSON serializer
func NewJSON() *JSON {
	return &JSON{}
}

// Serialize implements Serializer
func (*JSON) Serialize(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Deserialize implements Serializer
func (*JSON) Deserialize(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}
