package tiered

import "encoding/json"

// Codec 序列化/反序列化存入 L2 Redis hash 字段的值。一个窄接口，默认实现
// 开箱即用，调用方可在构造 Manager 时替换为自定义实现。
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// jsonCodec 是默认的 Codec 实现，基于标准库 encoding/json。
type jsonCodec struct{}

// JSONCodec 返回基于 encoding/json 的默认 Codec。
func JSONCodec() Codec { return jsonCodec{} }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
