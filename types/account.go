// types/account.go
package types

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL 1 SOL = 10^9 lamports
const LamportsPerSOL uint64 = 1_000_000_000

// Account 账本账户
type Account struct {
	Lamports   uint64
	Owner      PublicKey // 可以修改 Data、扣减 Lamports 的程序
	Executable bool
	Data       []byte
}

// FormatLamports 把 lamports 转成 SOL 文本，例如 1500000000 → "1.5"
func FormatLamports(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}
