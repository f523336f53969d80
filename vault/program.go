package vault

import (
	"bytes"
	"fmt"

	"vault/config"
	"vault/derive"
	"vault/logs"
	"vault/types"
	"vault/vm"
)

// Program 金库程序
// 每个 owner 一条记录 + 一个托管账户，托管账户的转出只能由本程序出示派生种子签名
type Program struct {
	id       types.PublicKey
	deriver  *derive.Deriver
	withdraw config.WithdrawConfig
}

// NewProgram 从配置创建；程序 ID 在启动时注入，不使用包级全局变量
func NewProgram(cfg config.VaultConfig) (*Program, error) {
	id, err := types.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("vault program id %q: %w", cfg.ProgramID, err)
	}
	d, err := derive.NewDeriver(id, cfg.DerivationCacheSize)
	if err != nil {
		return nil, err
	}
	return &Program{id: id, deriver: d, withdraw: cfg.Withdraw}, nil
}

func (p *Program) Kind() string {
	return p.id.String()
}

// ProgramID 程序地址
func (p *Program) ProgramID() types.PublicKey {
	return p.id
}

// Derive 派生 owner 的记录和托管账户（走缓存）
func (p *Program) Derive(owner types.PublicKey) (Derived, error) {
	return DeriveAccounts(p.deriver, owner)
}

func (p *Program) DryRun(ctx *vm.InvokeContext, ix *types.Instruction) error {
	if len(ix.Data) < 8 {
		return fmt.Errorf("%w: %d bytes", ErrUnknownInstruction, len(ix.Data))
	}
	disc, args := ix.Data[:8], ix.Data[8:]

	switch {
	case bytes.Equal(disc, initializeDiscriminator[:]):
		ctx.Log("Instruction: Initialize")
		return p.initialize(ctx)

	case bytes.Equal(disc, depositDiscriminator[:]):
		ctx.Log("Instruction: Deposit")
		amount, err := decodeAmount(args)
		if err != nil {
			return err
		}
		return p.deposit(ctx, amount)

	case bytes.Equal(disc, withdrawDiscriminator[:]):
		ctx.Log("Instruction: Withdraw")
		amount, err := decodeAmount(args)
		if err != nil {
			return err
		}
		return p.withdrawLamports(ctx, amount)

	case bytes.Equal(disc, closeDiscriminator[:]):
		ctx.Log("Instruction: Close")
		return p.close(ctx)

	default:
		return fmt.Errorf("%w: %x", ErrUnknownInstruction, disc)
	}
}

// instructionAccounts 取出 owner/state/vault 三个账户，并检查 owner 签名和系统程序
func (p *Program) instructionAccounts(ctx *vm.InvokeContext) (Accounts, error) {
	if ctx.NumAccounts() < 4 {
		return Accounts{}, fmt.Errorf("%w: want 4, have %d", vm.ErrNotEnoughAccountKeys, ctx.NumAccounts())
	}
	owner, _ := ctx.AccountKey(0)
	state, _ := ctx.AccountKey(1)
	vault, _ := ctx.AccountKey(2)
	sys, _ := ctx.AccountKey(3)

	if !ctx.IsSigner(owner) {
		return Accounts{}, fmt.Errorf("%w: owner %s", ErrAccountNotSigner, owner)
	}
	if sys != types.SystemProgramID {
		return Accounts{}, fmt.Errorf("%w: system program, got %s", ErrInvalidProgramID, sys)
	}
	return Accounts{Owner: owner, State: state, Vault: vault}, nil
}

// requireSystemAccount 托管账户必须由系统程序持有（不存在的地址也算）
func requireSystemAccount(ctx *vm.InvokeContext, addr types.PublicKey) (*types.Account, error) {
	acct, err := ctx.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct.Owner != types.SystemProgramID {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrAccountNotSystemOwned, addr, acct.Owner)
	}
	return acct, nil
}

// initialize 创建记录（地址已有数据或已被程序持有时由系统程序报错，这就是“一个 owner 一个金库”的保证），
// 再从 owner 转入托管账户的免租余额
func (p *Program) initialize(ctx *vm.InvokeContext) error {
	accts, err := p.instructionAccounts(ctx)
	if err != nil {
		return err
	}
	derived, err := p.Derive(accts.Owner)
	if err != nil {
		return err
	}
	if derived.State != accts.State {
		return fmt.Errorf("%w: state: expected %s, got %s", ErrConstraintSeeds, derived.State, accts.State)
	}
	if derived.Vault != accts.Vault {
		return fmt.Errorf("%w: vault: expected %s, got %s", ErrConstraintSeeds, derived.Vault, accts.Vault)
	}
	custody, err := requireSystemAccount(ctx, accts.Vault)
	if err != nil {
		return err
	}

	rent := ctx.Rent()
	stateSeeds := append(StateSeeds(accts.Owner), []byte{derived.StateBump})
	if err := p.createRecord(ctx, accts, stateSeeds, rent.MinimumBalance(StateSpace)); err != nil {
		return err
	}

	record, err := ctx.Account(accts.State)
	if err != nil {
		return err
	}
	st := &State{VaultBump: derived.VaultBump, StateBump: derived.StateBump}
	record.Data = st.Marshal()
	if err := ctx.SetAccount(accts.State, record); err != nil {
		return err
	}

	rentExempt := rent.MinimumBalance(len(custody.Data))
	if err := ctx.Invoke(vm.NewTransferInstruction(accts.Owner, accts.Vault, rentExempt)); err != nil {
		return err
	}

	logs.Info("[Vault] initialized owner=%s state=%s vault=%s bumps=(%d,%d)",
		accts.Owner.Short(), accts.State.Short(), accts.Vault.Short(), st.StateBump, st.VaultBump)
	return nil
}

// createRecord 在记录地址上建账户。
// 地址上已有别人转入的余额（无数据、系统持有）时不能 CreateAccount，
// 改为补足免租差额后 Allocate + Assign；已有数据或已被程序持有的地址由 Allocate 报 already in use。
func (p *Program) createRecord(ctx *vm.InvokeContext, accts Accounts, stateSeeds [][]byte, required uint64) error {
	existing, err := ctx.Account(accts.State)
	if err != nil {
		return err
	}
	if existing.Lamports == 0 {
		create := vm.NewCreateAccountInstruction(accts.Owner, accts.State, required, StateSpace, p.id)
		return ctx.InvokeSigned(create, stateSeeds)
	}

	if existing.Lamports < required {
		topUp := required - existing.Lamports
		if err := ctx.Invoke(vm.NewTransferInstruction(accts.Owner, accts.State, topUp)); err != nil {
			return err
		}
	}
	if err := ctx.InvokeSigned(vm.NewAllocateInstruction(accts.State, StateSpace), stateSeeds); err != nil {
		return err
	}
	if err := ctx.InvokeSigned(vm.NewAssignInstruction(accts.State, p.id), stateSeeds); err != nil {
		return err
	}
	logs.Debug("[Vault] adopted prefunded record %s (%d lamports already there)", accts.State.Short(), existing.Lamports)
	return nil
}

// loadVault 读取并校验记录：owner、类型标识，以及用缓存 bump 重算两个地址。
// 通过后才构造 SigningAuthority。
func (p *Program) loadVault(ctx *vm.InvokeContext) (Accounts, SigningAuthority, error) {
	accts, err := p.instructionAccounts(ctx)
	if err != nil {
		return Accounts{}, SigningAuthority{}, err
	}

	record, err := ctx.Account(accts.State)
	if err != nil {
		return Accounts{}, SigningAuthority{}, err
	}
	if record.Lamports == 0 && record.Owner == types.SystemProgramID {
		return Accounts{}, SigningAuthority{}, fmt.Errorf("%w: %s", ErrAccountNotInitialized, accts.State)
	}
	if record.Owner != p.id {
		return Accounts{}, SigningAuthority{}, fmt.Errorf("%w: %s owned by %s", ErrAccountOwnedByWrongProgram, accts.State, record.Owner)
	}
	st, err := UnmarshalState(record.Data)
	if err != nil {
		return Accounts{}, SigningAuthority{}, err
	}

	if err := p.deriver.Verify(accts.State, st.StateBump, StateSeeds(accts.Owner)...); err != nil {
		return Accounts{}, SigningAuthority{}, fmt.Errorf("%w: state: %v", ErrConstraintSeeds, err)
	}
	if err := p.deriver.Verify(accts.Vault, st.VaultBump, VaultSeeds(accts.State)...); err != nil {
		return Accounts{}, SigningAuthority{}, fmt.Errorf("%w: vault: %v", ErrConstraintSeeds, err)
	}
	if _, err := requireSystemAccount(ctx, accts.Vault); err != nil {
		return Accounts{}, SigningAuthority{}, err
	}

	return accts, newVaultAuthority(accts.State, accts.Vault, st), nil
}

// deposit owner 自己签名转入，余额不足由系统程序报错
func (p *Program) deposit(ctx *vm.InvokeContext, amount uint64) error {
	accts, _, err := p.loadVault(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Invoke(vm.NewTransferInstruction(accts.Owner, accts.Vault, amount)); err != nil {
		return err
	}
	logs.Debug("[Vault] deposit %d from %s", amount, accts.Owner.Short())
	return nil
}

// withdrawLamports 程序用托管账户的种子签名转出
// 余额与免租校验默认关闭，由 config.Vault.Withdraw 打开
func (p *Program) withdrawLamports(ctx *vm.InvokeContext, amount uint64) error {
	accts, auth, err := p.loadVault(ctx)
	if err != nil {
		return err
	}

	if p.withdraw.RequireSufficientBalance || p.withdraw.RequireRentExemptRemainder {
		custody, err := ctx.Account(accts.Vault)
		if err != nil {
			return err
		}
		if p.withdraw.RequireSufficientBalance && amount > custody.Lamports {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientVaultFunds, custody.Lamports, amount)
		}
		if p.withdraw.RequireRentExemptRemainder && amount <= custody.Lamports {
			remain := custody.Lamports - amount
			if need := ctx.Rent().MinimumBalance(len(custody.Data)); remain != 0 && remain < need {
				return fmt.Errorf("%w: %d left, minimum %d", ErrWithdrawBelowRentExempt, remain, need)
			}
		}
	}

	if err := ctx.InvokeSigned(vm.NewTransferInstruction(auth.Address(), accts.Owner, amount), auth.signerSeeds()); err != nil {
		return err
	}
	logs.Debug("[Vault] withdraw %d to %s", amount, accts.Owner.Short())
	return nil
}

// close 先清空托管账户，再关闭记录并把记录的免租余额退给 owner。
// 托管账户已空（上次关闭中断）时转账为 0，照常关闭记录。
func (p *Program) close(ctx *vm.InvokeContext) error {
	accts, auth, err := p.loadVault(ctx)
	if err != nil {
		return err
	}

	custody, err := ctx.Account(accts.Vault)
	if err != nil {
		return err
	}
	drained := custody.Lamports
	if err := ctx.InvokeSigned(vm.NewTransferInstruction(auth.Address(), accts.Owner, drained), auth.signerSeeds()); err != nil {
		return err
	}

	record, err := ctx.Account(accts.State)
	if err != nil {
		return err
	}
	owner, err := ctx.Account(accts.Owner)
	if err != nil {
		return err
	}
	refund := record.Lamports
	if owner.Lamports, err = vm.SafeAdd(owner.Lamports, refund); err != nil {
		return err
	}
	record.Lamports = 0
	record.Data = nil
	record.Owner = types.SystemProgramID
	if err := ctx.SetAccount(accts.State, record); err != nil {
		return err
	}
	if err := ctx.SetAccount(accts.Owner, owner); err != nil {
		return err
	}

	logs.Info("[Vault] closed owner=%s drained=%s refund=%s",
		accts.Owner.Short(), types.FormatLamports(drained), types.FormatLamports(refund))
	return nil
}
