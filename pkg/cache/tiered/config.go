package tiered

import (
	"fmt"

	"github.com/tiercache/tiercache/pkg/config/xconf"
)

// configKeyPrefix 是配置树中本模块所占的键前缀，对应 SPEC_FULL.md §6。
const configKeyPrefix = "cache.tiered"

// LoadGlobalConfig 从 path 指向的 YAML/JSON 文件加载配置，未出现的键保留
// DefaultGlobalConfig 给出的默认值。
//
// 加载器本身不做校验或默认值填充之外的事情——默认值与生效策略的计算完全
// 交给 effectiveStrategy（见 §4.1），这与教师仓库"加载"与"治理"分离的约定一致。
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	cfg, err := xconf.New(path)
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	out := DefaultGlobalConfig()
	if err := cfg.Unmarshal(configKeyPrefix, &out); err != nil {
		return GlobalConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return out, nil
}

// LoadGlobalConfigFromBytes 从内存中的 YAML/JSON 文档加载配置，用于测试
// 或不经由文件系统分发配置的部署形态。
func LoadGlobalConfigFromBytes(data []byte, format xconf.Format) (GlobalConfig, error) {
	cfg, err := xconf.NewFromBytes(data, format)
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	out := DefaultGlobalConfig()
	if err := cfg.Unmarshal(configKeyPrefix, &out); err != nil {
		return GlobalConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return out, nil
}
