// keys/keys.go
// 统一的 Key 定义包，供 VM 和 DB 模块共同使用
package keys

import (
	"fmt"
	"strings"
)

// ===================== 版本控制 =====================
// 设置全局 Key 版本前缀（例如 "v1" → 产出 "v1_<key>"）。
const KeyVersion = "v1"

// withVer 把版本号拼到最前面（保持下划线风格：v1_<...>）
func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// StripVersion 把带版本的键去掉版本前缀
func StripVersion(prefixed string) string {
	if KeyVersion == "" {
		return prefixed
	}
	return strings.TrimPrefix(prefixed, KeyVersion+"_")
}

// ===================== 账户相关 =====================

// KeyAccount 账本账户（余额、owner、数据）
// 例：v1_account_<base58 address>
func KeyAccount(addr string) string {
	return withVer("account_" + addr)
}

// KeyAccountPrefix 账户前缀
func KeyAccountPrefix() string {
	return withVer("account_")
}

// AccountAddressFromKey 从账户 key 中取回地址，不是账户 key 时返回 false
func AccountAddressFromKey(key string) (string, bool) {
	prefix := KeyAccountPrefix()
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	return key[len(prefix):], true
}

// ===================== 交易相关 =====================

// KeyReceipt 交易回执
// 例：v1_receipt_<txID>
func KeyReceipt(txID string) string {
	return withVer("receipt_" + txID)
}

// KeyReceiptPrefix 回执前缀
func KeyReceiptPrefix() string {
	return withVer("receipt_")
}

// KeyVMAppliedTx 已处理交易标记（防重放）
// 例：v1_vm_applied_tx_<txID>
func KeyVMAppliedTx(txID string) string {
	return withVer("vm_applied_tx_" + txID)
}

// KeyLatestSlot 最近一次提交的 slot
// 例：v1_latest_slot
func KeyLatestSlot() string {
	return withVer("latest_slot")
}

// KeySlotTx slot 到交易的映射
// 例：v1_slot_<20位slot>
func KeySlotTx(slot uint64) string {
	return withVer(fmt.Sprintf("slot_%020d", slot))
}
