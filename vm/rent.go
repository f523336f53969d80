package vm

import "vault/config"

// Rent 免租计算：账户余额不低于 MinimumBalance 时永不被回收
type Rent struct {
	LamportsPerByteYear    uint64
	ExemptionYears         uint64
	AccountStorageOverhead uint64
}

// NewRent 从配置构造
func NewRent(cfg config.RentConfig) Rent {
	return Rent{
		LamportsPerByteYear:    cfg.LamportsPerByteYear,
		ExemptionYears:         cfg.ExemptionYears,
		AccountStorageOverhead: cfg.AccountStorageOverhead,
	}
}

// MinimumBalance (overhead + dataLen) * lamportsPerByteYear * exemptionYears
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (r.AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionYears
}

// IsExempt 余额是否满足免租
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}
