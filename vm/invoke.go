package vm

import (
	"bytes"
	"fmt"

	"vault/derive"
	"vault/types"
)

// InvokeContext 单条指令的执行上下文
// 程序只能通过它读写指令里列出的账户，跨程序调用也从这里发起
type InvokeContext struct {
	x           *Executor
	sv          StateView
	programID   types.PublicKey
	accounts    []types.AccountMeta
	signers     map[types.PublicKey]bool
	seedSigners map[types.PublicKey]bool // 由调用方程序用派生种子签名的地址
	depth       int
	logs        *[]string
}

// StateView 底层状态视图
func (c *InvokeContext) StateView() StateView { return c.sv }

// ProgramID 当前执行的程序
func (c *InvokeContext) ProgramID() types.PublicKey { return c.programID }

// Depth 调用深度，顶层指令为 1
func (c *InvokeContext) Depth() int { return c.depth }

// Rent 运行时租金参数
func (c *InvokeContext) Rent() Rent { return c.x.Rent }

// AccountKey 第 i 个账户地址
func (c *InvokeContext) AccountKey(i int) (types.PublicKey, error) {
	if i < 0 || i >= len(c.accounts) {
		return types.PublicKey{}, fmt.Errorf("%w: want index %d, have %d", ErrNotEnoughAccountKeys, i, len(c.accounts))
	}
	return c.accounts[i].PublicKey, nil
}

// NumAccounts 指令携带的账户数
func (c *InvokeContext) NumAccounts() int { return len(c.accounts) }

// IsSigner 地址在本指令中是否具有签名权限
func (c *InvokeContext) IsSigner(pk types.PublicKey) bool {
	return c.signers[pk]
}

// IsSeedSigner 签名是否来自派生种子
func (c *InvokeContext) IsSeedSigner(pk types.PublicKey) bool {
	return c.seedSigners[pk]
}

// IsWritable 任一引用该地址的 meta 可写即视为可写
func (c *InvokeContext) IsWritable(pk types.PublicKey) bool {
	for _, m := range c.accounts {
		if m.PublicKey == pk && m.IsWritable {
			return true
		}
	}
	return false
}

func (c *InvokeContext) hasAccount(pk types.PublicKey) bool {
	for _, m := range c.accounts {
		if m.PublicKey == pk {
			return true
		}
	}
	return false
}

// Log 写一条程序日志到回执
func (c *InvokeContext) Log(format string, args ...interface{}) {
	if c.logs == nil {
		return
	}
	*c.logs = append(*c.logs, "Program log: "+fmt.Sprintf(format, args...))
}

// Account 读取指令中列出的账户，不存在时返回系统程序持有的空账户
func (c *InvokeContext) Account(pk types.PublicKey) (*types.Account, error) {
	if !c.hasAccount(pk) {
		return nil, fmt.Errorf("%w: %s not passed to %s", ErrNotEnoughAccountKeys, pk, c.programID.Short())
	}
	return GetAccountOrEmpty(c.sv, pk)
}

// SetAccount 写回账户，执行账本的所有权规则：
// 只读账户不可改；只有 owner 程序能扣减余额、修改数据、改 owner（且数据必须清零）
func (c *InvokeContext) SetAccount(pk types.PublicKey, post *types.Account) error {
	if !c.hasAccount(pk) {
		return fmt.Errorf("%w: %s not passed to %s", ErrNotEnoughAccountKeys, pk, c.programID.Short())
	}
	if post == nil {
		return ErrInvalidAccountData
	}
	pre, err := GetAccountOrEmpty(c.sv, pk)
	if err != nil {
		return err
	}

	dataChanged := !bytes.Equal(pre.Data, post.Data)
	if pre.Lamports == post.Lamports && pre.Owner == post.Owner &&
		pre.Executable == post.Executable && !dataChanged {
		return nil
	}
	if !c.IsWritable(pk) {
		return fmt.Errorf("%w: %s", ErrReadonlyAccountModified, pk)
	}

	owned := pre.Owner == c.programID
	if post.Lamports < pre.Lamports && !owned {
		return fmt.Errorf("%w: %s owned by %s", ErrExternalAccountLamportSpend, pk, pre.Owner.Short())
	}
	if dataChanged && !owned {
		return fmt.Errorf("%w: %s owned by %s", ErrExternalAccountDataModified, pk, pre.Owner.Short())
	}
	if pre.Owner != post.Owner && (!owned || !isZeroed(post.Data)) {
		return fmt.Errorf("%w: %s", ErrModifiedProgramID, pk)
	}
	if pre.Executable != post.Executable {
		return fmt.Errorf("%w: %s executable flag", ErrModifiedProgramID, pk)
	}

	SetAccount(c.sv, pk, post)
	return nil
}

func isZeroed(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Invoke 跨程序调用，只继承调用方已有的签名
func (c *InvokeContext) Invoke(ix types.Instruction) error {
	return c.InvokeSigned(ix)
}

// InvokeSigned 跨程序调用；signerSeeds 中每组种子在当前程序下派生出一个地址，
// 该地址在被调程序中视为签名者。种子只能以调用方自己的程序 ID 派生，
// 其他程序无法冒用。
func (c *InvokeContext) InvokeSigned(ix types.Instruction, signerSeeds ...[][]byte) error {
	if c.depth >= c.x.cfg.MaxInvokeDepth {
		return fmt.Errorf("%w: depth %d", ErrCallDepth, c.depth+1)
	}

	pdaSigners := make(map[types.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := derive.CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return fmt.Errorf("invoke signed: %w", err)
		}
		pdaSigners[addr] = true
	}

	calleeSigners := make(map[types.PublicKey]bool)
	calleeSeedSigners := make(map[types.PublicKey]bool)
	for _, m := range ix.Accounts {
		if m.IsWritable && !c.IsWritable(m.PublicKey) {
			return fmt.Errorf("%w: %s writable", ErrPrivilegeEscalation, m.PublicKey)
		}
		if !m.IsSigner {
			continue
		}
		switch {
		case pdaSigners[m.PublicKey]:
			calleeSigners[m.PublicKey] = true
			calleeSeedSigners[m.PublicKey] = true
		case c.signers[m.PublicKey]:
			calleeSigners[m.PublicKey] = true
			if c.seedSigners[m.PublicKey] {
				calleeSeedSigners[m.PublicKey] = true
			}
		default:
			return fmt.Errorf("%w: %s signer", ErrPrivilegeEscalation, m.PublicKey)
		}
	}

	return c.x.processInstruction(c.sv, &ix, calleeSigners, calleeSeedSigners, c.depth+1, c.logs)
}

// processInstruction 路由到程序并校验指令前后 lamports 总和不变
func (x *Executor) processInstruction(sv StateView, ix *types.Instruction, signers, seedSigners map[types.PublicKey]bool, depth int, logs *[]string) error {
	programID := ix.ProgramID.String()
	h, ok := x.Reg.Get(programID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, programID)
	}

	ctx := &InvokeContext{
		x:           x,
		sv:          sv,
		programID:   ix.ProgramID,
		accounts:    ix.Accounts,
		signers:     signers,
		seedSigners: seedSigners,
		depth:       depth,
		logs:        logs,
	}
	appendLog(logs, fmt.Sprintf("Program %s invoke [%d]", programID, depth))

	before, err := sumLamports(sv, ix.Accounts)
	if err != nil {
		return err
	}
	err = h.DryRun(ctx, ix)
	if err == nil {
		var after uint64
		after, err = sumLamports(sv, ix.Accounts)
		if err == nil && before != after {
			err = fmt.Errorf("%w: %d before, %d after", ErrUnbalancedInstruction, before, after)
		}
	}
	if err != nil {
		appendLog(logs, fmt.Sprintf("Program %s failed: %v", programID, err))
		return err
	}
	appendLog(logs, fmt.Sprintf("Program %s success", programID))
	return nil
}

func appendLog(logs *[]string, line string) {
	if logs != nil {
		*logs = append(*logs, line)
	}
}

func sumLamports(sv StateView, metas []types.AccountMeta) (uint64, error) {
	seen := make(map[types.PublicKey]struct{}, len(metas))
	var total uint64
	for _, m := range metas {
		if _, ok := seen[m.PublicKey]; ok {
			continue
		}
		seen[m.PublicKey] = struct{}{}
		lamports, err := GetLamports(sv, m.PublicKey)
		if err != nil {
			return 0, err
		}
		if total, err = SafeAdd(total, lamports); err != nil {
			return 0, err
		}
	}
	return total, nil
}
