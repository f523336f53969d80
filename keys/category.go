// keys/category.go
// Key 分类模块：区分可变状态和不可变流水
package keys

import "strings"

// KeyCategory 定义 Key 的存储归属
type KeyCategory int

const (
	CategoryKV    KeyCategory = iota // 不可变流水/索引
	CategoryState                    // 可变状态
)

// 可变状态数据前缀
var statePrefixes = []string{
	"v1_account_",    // 账户状态（余额、owner、数据）
	"v1_latest_slot", // 最新 slot
}

// CategorizeKey 判断 key 应该归到哪一类
func CategorizeKey(key string) KeyCategory {
	for _, prefix := range statePrefixes {
		if strings.HasPrefix(key, prefix) {
			return CategoryState
		}
	}
	return CategoryKV
}

// CategoryName WriteOp.Category 使用的可读名称
func CategoryName(key string) string {
	switch {
	case IsAccountKey(key):
		return "account"
	case strings.HasPrefix(key, "v1_receipt_"):
		return "receipt"
	case IsVMKey(key), strings.HasPrefix(key, "v1_slot_"), key == KeyLatestSlot():
		return "meta"
	default:
		return "kv"
	}
}

// IsStatefulKey 判断 key 是否属于可变状态（便捷方法）
func IsStatefulKey(key string) bool {
	return CategorizeKey(key) == CategoryState
}

// IsAccountKey 判断是否为账户数据
func IsAccountKey(key string) bool {
	return strings.HasPrefix(key, "v1_account_")
}

// IsVMKey 判断是否为 VM 执行状态
func IsVMKey(key string) bool {
	return strings.HasPrefix(key, "v1_vm_")
}
