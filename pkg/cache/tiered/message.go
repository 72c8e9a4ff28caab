package tiered

// invalidationTopic 是失效消息发布/订阅使用的 Redis channel 名称。
const invalidationTopic = "cache:invalidate"

// MessageType 区分失效消息的种类。
type MessageType string

const (
	// MessageEvict 表示某个具名缓存的单个 key 应被本地失效。
	MessageEvict MessageType = "EVICT"

	// MessageClear 表示某个具名缓存应被整体本地失效。
	MessageClear MessageType = "CLEAR"
)

// CacheMessage 是失效话题上传递的载荷，JSON 编码。
type CacheMessage struct {
	InstanceID string      `json:"instanceId"`
	Type       MessageType `json:"type"`
	CacheName  string      `json:"cacheName"`
	Key        string      `json:"key,omitempty"`
}

// newEvictMessage 构造一条打上本进程标识的 EVICT 消息。
func newEvictMessage(cacheName, key string) CacheMessage {
	return CacheMessage{
		InstanceID: currentInstanceID(),
		Type:       MessageEvict,
		CacheName:  cacheName,
		Key:        key,
	}
}

// newClearMessage 构造一条打上本进程标识的 CLEAR 消息。
func newClearMessage(cacheName string) CacheMessage {
	return CacheMessage{
		InstanceID: currentInstanceID(),
		Type:       MessageClear,
		CacheName:  cacheName,
	}
}

// isFromCurrentInstance 判断消息是否由本进程发出（自回环）。
func (m CacheMessage) isFromCurrentInstance() bool {
	return m.InstanceID == currentInstanceID()
}
