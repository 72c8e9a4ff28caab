package tiered

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	instanceIDOnce sync.Once
	instanceID     string
)

// currentInstanceID 返回本进程的稳定标识，用于失效消息的自回环抑制。
// 计算一次并在进程生命周期内保持不变：优先 "hostname:pid"，
// 主机名解析失败时退化为 8 位随机十六进制串。
func currentInstanceID() string {
	instanceIDOnce.Do(func() {
		host, err := os.Hostname()
		if err != nil || host == "" {
			instanceID = randomInstanceSuffix()
			return
		}
		instanceID = fmt.Sprintf("%s:%d", host, os.Getpid())
	})
	return instanceID
}

// randomInstanceSuffix 生成 8 位随机十六进制串，作为主机名解析失败时的兜底标识。
func randomInstanceSuffix() string {
	return uuid.NewString()[:8]
}
