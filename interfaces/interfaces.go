// interfaces/interfaces.go
package interfaces

// DBManager 执行器依赖的存储接口
// 写入先入队，ForceFlush 时在一个存储事务里原子落库
type DBManager interface {
	Get(key string) ([]byte, error) // 不存在时返回 (nil, nil)
	Scan(prefix string) (map[string][]byte, error)

	EnqueueSet(key, value string)
	EnqueueDel(key string)
	// ForceFlush 失败时队列保持原样，由调用方决定是否丢弃
	ForceFlush() error
	// DiscardPending 丢弃尚未落库的写入
	DiscardPending()
}
