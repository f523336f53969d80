package vm

import "errors"

// ========== 错误定义 ==========

var (
	ErrNilTx            = errors.New("nil transaction")
	ErrInvalidSnapshot  = errors.New("invalid snapshot index")
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// 账户与余额
	ErrInsufficientFunds           = errors.New("insufficient lamports")
	ErrAccountAlreadyInUse         = errors.New("account already in use")
	ErrAccountNotFound             = errors.New("account not found")
	ErrInsufficientFundsForFee     = errors.New("insufficient funds for fee")
	ErrInvalidAccountForFee        = errors.New("fee payer must be a system account")
	ErrInsufficientFundsForRent    = errors.New("insufficient funds for rent")
	ErrTransferFromAccountWithData = errors.New("transfer: `from` must not carry data")
	ErrInvalidAccountOwner         = errors.New("invalid account owner")
	ErrInvalidAccountDataLength    = errors.New("invalid account data length")
	ErrInvalidAccountData          = errors.New("invalid account data")

	// 指令与权限
	ErrUnknownProgram              = errors.New("unknown program")
	ErrInvalidInstructionData      = errors.New("invalid instruction data")
	ErrNotEnoughAccountKeys        = errors.New("not enough account keys")
	ErrMissingRequiredSignature    = errors.New("missing required signature")
	ErrPrivilegeEscalation         = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrReadonlyAccountModified     = errors.New("instruction modified a readonly account")
	ErrExternalAccountLamportSpend = errors.New("instruction spent from the balance of an account it does not own")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrCallDepth                   = errors.New("cross-program invocation call depth too deep")
)

// ========== 基础类型定义 ==========

// “要怎么改状态”的清单
type WriteOp struct {
	Key      string // 完整的 key（包括命名空间前缀）
	Value    []byte // 序列化后的值
	Del      bool   // true表示删除操作
	Category string // 数据分类：account, receipt, meta 等，便于追踪和调试
}

// 交易执行状态
const (
	StatusSucceed = "SUCCEED"
	StatusFailed  = "FAILED"
)

// 记录执行结果
type Receipt struct {
	TxID       string   `json:"txId"`
	Status     string   `json:"status"` // "SUCCEED" or "FAILED"
	Error      string   `json:"error,omitempty"`
	Slot       uint64   `json:"slot"`
	Timestamp  int64    `json:"timestamp"`
	Fee        uint64   `json:"fee"`
	Logs       []string `json:"logs,omitempty"`
	WriteCount int      `json:"writeCount"`
}

// Succeeded 是否执行成功
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == StatusSucceed
}
