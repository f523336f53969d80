package vm

import "vault/types"

// ========== 核心接口定义 ==========

// StateView 状态视图接口
type StateView interface {
	//读/写/删某个 key 的状态；写入只写进这个视图，不直接落到底层 DB。
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Del(key string)
	//做一个快照点、必要时回滚到该点，实现失败回滚。
	Snapshot() int
	Revert(snap int) error
	//把这段执行期间累积的写入集合（写集）导出来，给后续“真正落库”用。
	Diff() []WriteOp
	// 扫描指定前缀下的所有键值对（叠加 overlay）
	Scan(prefix string) (map[string][]byte, error)
}

// TxHandler 程序处理器接口，一个程序对应一个 Handler
type TxHandler interface {
	//标识这个 Handler 处理哪个程序（程序地址的 base58）。
	Kind() string
	//在 InvokeContext 持有的 StateView 上执行一条指令；返回错误时整笔交易回滚。
	DryRun(ctx *InvokeContext, ix *types.Instruction) error
}

// （读穿函数）
// 当 StateView.Get 本地 overlay 没命中时，定义“如何从底层存储读真实值”的函数签名
type ReadThroughFn func(key string) ([]byte, error)

// ScanFn 用于 StateView 从底层存储做前缀扫描
type ScanFn func(prefix string) (map[string][]byte, error)
