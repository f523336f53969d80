package vault

import (
	"encoding/binary"
	"fmt"

	"vault/types"
)

// 指令名；提现指令的链上名字是 "withdraw"
const (
	InstructionInitialize = "initialize"
	InstructionDeposit    = "deposit"
	InstructionWithdraw   = "withdraw"
	InstructionClose      = "close"
)

var (
	initializeDiscriminator = discriminator("global", InstructionInitialize)
	depositDiscriminator    = discriminator("global", InstructionDeposit)
	withdrawDiscriminator   = discriminator("global", InstructionWithdraw)
	closeDiscriminator      = discriminator("global", InstructionClose)
)

// 指令账户顺序：owner, state, vault, system program
func (a Accounts) metas(stateWritable bool) []types.AccountMeta {
	return []types.AccountMeta{
		types.NewAccountMeta(a.Owner, true, true),
		types.NewAccountMeta(a.State, false, stateWritable),
		types.NewAccountMeta(a.Vault, false, true),
		types.NewAccountMeta(types.SystemProgramID, false, false),
	}
}

// NewInitializeInstruction 创建金库记录并为托管账户注入免租余额
func NewInitializeInstruction(programID types.PublicKey, accts Accounts) types.Instruction {
	return types.Instruction{
		ProgramID: programID,
		Accounts:  accts.metas(true),
		Data:      append([]byte(nil), initializeDiscriminator[:]...),
	}
}

// NewDepositInstruction owner → 托管账户
func NewDepositInstruction(programID types.PublicKey, accts Accounts, amount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: programID,
		Accounts:  accts.metas(false),
		Data:      withAmount(depositDiscriminator, amount),
	}
}

// NewWithdrawInstruction 托管账户 → owner
func NewWithdrawInstruction(programID types.PublicKey, accts Accounts, amount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: programID,
		Accounts:  accts.metas(false),
		Data:      withAmount(withdrawDiscriminator, amount),
	}
}

// NewCloseInstruction 清空托管账户并关闭记录
func NewCloseInstruction(programID types.PublicKey, accts Accounts) types.Instruction {
	return types.Instruction{
		ProgramID: programID,
		Accounts:  accts.metas(true),
		Data:      append([]byte(nil), closeDiscriminator[:]...),
	}
}

func withAmount(disc [8]byte, amount uint64) []byte {
	data := make([]byte, 16)
	copy(data, disc[:])
	binary.LittleEndian.PutUint64(data[8:], amount)
	return data
}

func decodeAmount(args []byte) (uint64, error) {
	if len(args) != 8 {
		return 0, fmt.Errorf("%w: amount wants 8 bytes, got %d", ErrInstructionDidNotDeserialize, len(args))
	}
	return binary.LittleEndian.Uint64(args), nil
}
