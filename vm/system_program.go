package vm

import (
	"encoding/binary"
	"fmt"

	"vault/logs"
	"vault/types"
)

// 系统程序指令编号（u32 小端）
const (
	SystemInstructionCreateAccount uint32 = 0
	SystemInstructionAssign        uint32 = 1
	SystemInstructionTransfer      uint32 = 2
	SystemInstructionAllocate      uint32 = 8
)

// MaxPermittedDataLength 单个账户数据上限 10MiB
const MaxPermittedDataLength = 10 * 1024 * 1024

// SystemProgram 原生系统程序：创建账户、转账、分配空间、转交 owner
type SystemProgram struct{}

func (p *SystemProgram) Kind() string {
	return types.SystemProgramID.String()
}

func (p *SystemProgram) DryRun(ctx *InvokeContext, ix *types.Instruction) error {
	if len(ix.Data) < 4 {
		return fmt.Errorf("%w: system instruction too short", ErrInvalidInstructionData)
	}
	tag := binary.LittleEndian.Uint32(ix.Data[:4])
	body := ix.Data[4:]

	switch tag {
	case SystemInstructionCreateAccount:
		// lamports u64 | space u64 | owner [32]
		if len(body) != 8+8+32 {
			return fmt.Errorf("%w: create_account wants 48 bytes, got %d", ErrInvalidInstructionData, len(body))
		}
		if ctx.NumAccounts() < 2 {
			return ErrNotEnoughAccountKeys
		}
		payer, _ := ctx.AccountKey(0)
		newAcct, _ := ctx.AccountKey(1)
		lamports := binary.LittleEndian.Uint64(body[0:8])
		space := binary.LittleEndian.Uint64(body[8:16])
		owner, _ := types.PublicKeyFromBytes(body[16:48])
		return p.createAccount(ctx, payer, newAcct, lamports, space, owner)

	case SystemInstructionTransfer:
		if len(body) != 8 {
			return fmt.Errorf("%w: transfer wants 8 bytes, got %d", ErrInvalidInstructionData, len(body))
		}
		if ctx.NumAccounts() < 2 {
			return ErrNotEnoughAccountKeys
		}
		from, _ := ctx.AccountKey(0)
		to, _ := ctx.AccountKey(1)
		return p.transfer(ctx, from, to, binary.LittleEndian.Uint64(body))

	case SystemInstructionAssign:
		if len(body) != 32 {
			return fmt.Errorf("%w: assign wants 32 bytes, got %d", ErrInvalidInstructionData, len(body))
		}
		if ctx.NumAccounts() < 1 {
			return ErrNotEnoughAccountKeys
		}
		acct, _ := ctx.AccountKey(0)
		owner, _ := types.PublicKeyFromBytes(body)
		return p.assign(ctx, acct, owner)

	case SystemInstructionAllocate:
		if len(body) != 8 {
			return fmt.Errorf("%w: allocate wants 8 bytes, got %d", ErrInvalidInstructionData, len(body))
		}
		if ctx.NumAccounts() < 1 {
			return ErrNotEnoughAccountKeys
		}
		acct, _ := ctx.AccountKey(0)
		return p.allocate(ctx, acct, binary.LittleEndian.Uint64(body))

	default:
		return fmt.Errorf("%w: unknown system instruction %d", ErrInvalidInstructionData, tag)
	}
}

// transfer from 必须签名、由系统程序持有且不带数据
func (p *SystemProgram) transfer(ctx *InvokeContext, from, to types.PublicKey, lamports uint64) error {
	if !ctx.IsSigner(from) {
		return fmt.Errorf("%w: transfer from %s", ErrMissingRequiredSignature, from)
	}
	src, err := ctx.Account(from)
	if err != nil {
		return err
	}
	if len(src.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrTransferFromAccountWithData, from)
	}
	if src.Owner != types.SystemProgramID {
		return fmt.Errorf("%w: transfer from %s owned by %s", ErrInvalidAccountOwner, from, src.Owner.Short())
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, src.Lamports, lamports)
	}
	if lamports == 0 || from == to {
		return nil
	}

	dst, err := ctx.Account(to)
	if err != nil {
		return err
	}
	src.Lamports -= lamports
	if dst.Lamports, err = SafeAdd(dst.Lamports, lamports); err != nil {
		return err
	}
	if err := ctx.SetAccount(from, src); err != nil {
		return err
	}
	if err := ctx.SetAccount(to, dst); err != nil {
		return err
	}

	authority := "key"
	if ctx.IsSeedSigner(from) {
		authority = "seeds"
	}
	ctx.x.Metrics.RecordTransfer(authority, lamports)
	logs.Trace("[VM] transfer %d %s -> %s (%s)", lamports, from.Short(), to.Short(), authority)
	return nil
}

// createAccount 先转入 lamports，再分配数据并转交 owner
func (p *SystemProgram) createAccount(ctx *InvokeContext, payer, newAcct types.PublicKey, lamports, space uint64, owner types.PublicKey) error {
	if !ctx.IsSigner(newAcct) {
		return fmt.Errorf("%w: new account %s", ErrMissingRequiredSignature, newAcct)
	}
	existing, err := ctx.Account(newAcct)
	if err != nil {
		return err
	}
	if existing.Lamports > 0 || len(existing.Data) > 0 || existing.Owner != types.SystemProgramID {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, newAcct)
	}
	if space > MaxPermittedDataLength {
		return fmt.Errorf("%w: %d", ErrInvalidAccountDataLength, space)
	}
	if lamports == 0 {
		return fmt.Errorf("%w: create_account with zero lamports", ErrInsufficientFundsForRent)
	}

	if err := p.transfer(ctx, payer, newAcct, lamports); err != nil {
		return err
	}
	if err := p.allocate(ctx, newAcct, space); err != nil {
		return err
	}
	if err := p.assign(ctx, newAcct, owner); err != nil {
		return err
	}
	logs.Debug("[VM] created account %s space=%d owner=%s", newAcct.Short(), space, owner.Short())
	return nil
}

// allocate 给系统持有、尚无数据的账户分配 space 字节（全零），账户必须签名
func (p *SystemProgram) allocate(ctx *InvokeContext, addr types.PublicKey, space uint64) error {
	if !ctx.IsSigner(addr) {
		return fmt.Errorf("%w: allocate %s", ErrMissingRequiredSignature, addr)
	}
	acct, err := ctx.Account(addr)
	if err != nil {
		return err
	}
	if len(acct.Data) > 0 || acct.Owner != types.SystemProgramID {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, addr)
	}
	if space > MaxPermittedDataLength {
		return fmt.Errorf("%w: %d", ErrInvalidAccountDataLength, space)
	}
	acct.Data = make([]byte, space)
	return ctx.SetAccount(addr, acct)
}

// assign 把账户转交给 owner 程序，账户必须签名；owner 未变时不做任何事
func (p *SystemProgram) assign(ctx *InvokeContext, addr, owner types.PublicKey) error {
	if !ctx.IsSigner(addr) {
		return fmt.Errorf("%w: assign %s", ErrMissingRequiredSignature, addr)
	}
	acct, err := ctx.Account(addr)
	if err != nil {
		return err
	}
	if acct.Owner == owner {
		return nil
	}
	if acct.Owner != types.SystemProgramID {
		return fmt.Errorf("%w: assign %s owned by %s", ErrInvalidAccountOwner, addr, acct.Owner.Short())
	}
	acct.Owner = owner
	return ctx.SetAccount(addr, acct)
}

// NewTransferInstruction 构造系统转账指令
func NewTransferInstruction(from, to types.PublicKey, lamports uint64) types.Instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], SystemInstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			types.NewAccountMeta(from, true, true),
			types.NewAccountMeta(to, false, true),
		},
		Data: data,
	}
}

// NewCreateAccountInstruction 构造创建账户指令，payer 和 newAcct 都需要签名
func NewCreateAccountInstruction(payer, newAcct types.PublicKey, lamports, space uint64, owner types.PublicKey) types.Instruction {
	data := make([]byte, 4+8+8+32)
	binary.LittleEndian.PutUint32(data[0:4], SystemInstructionCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner[:])
	return types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts: []types.AccountMeta{
			types.NewAccountMeta(payer, true, true),
			types.NewAccountMeta(newAcct, true, true),
		},
		Data: data,
	}
}

// NewAllocateInstruction 构造分配空间指令，account 需要签名
func NewAllocateInstruction(account types.PublicKey, space uint64) types.Instruction {
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], SystemInstructionAllocate)
	binary.LittleEndian.PutUint64(data[4:12], space)
	return types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts:  []types.AccountMeta{types.NewAccountMeta(account, true, true)},
		Data:      data,
	}
}

// NewAssignInstruction 构造转交 owner 指令，account 需要签名
func NewAssignInstruction(account, owner types.PublicKey) types.Instruction {
	data := make([]byte, 4+32)
	binary.LittleEndian.PutUint32(data[0:4], SystemInstructionAssign)
	copy(data[4:36], owner[:])
	return types.Instruction{
		ProgramID: types.SystemProgramID,
		Accounts:  []types.AccountMeta{types.NewAccountMeta(account, true, true)},
		Data:      data,
	}
}
