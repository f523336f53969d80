package vm_test

import (
	"errors"
	"testing"

	"vault/config"
	"vault/derive"
	"vault/types"
	"vault/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// poolProgram 测试程序：持有一个派生地址 "pool"，用种子签名从中转出
type poolProgram struct {
	id   types.PublicKey
	bump uint8
}

const (
	poolWithdrawSigned = iota
	poolWithdrawUnsigned
	poolDebitForeign
	poolRecurse
	poolTouchReadonly
	poolForeignSeeds
)

func newPoolProgram(t *testing.T) (*poolProgram, types.PublicKey) {
	t.Helper()
	id := newKeypair(t, 42).PublicKey()
	addr, bump, err := derive.FindProgramAddress([][]byte{[]byte("pool")}, id)
	require.NoError(t, err)
	return &poolProgram{id: id, bump: bump}, addr
}

func (p *poolProgram) Kind() string { return p.id.String() }

func (p *poolProgram) DryRun(ctx *vm.InvokeContext, ix *types.Instruction) error {
	pool, err := ctx.AccountKey(0)
	if err != nil {
		return err
	}
	to, err := ctx.AccountKey(1)
	if err != nil {
		return err
	}
	seeds := [][]byte{[]byte("pool"), {p.bump}}

	switch ix.Data[0] {
	case poolWithdrawSigned:
		ctx.Log("pool withdraw")
		return ctx.InvokeSigned(vm.NewTransferInstruction(pool, to, 1_000_000), seeds)
	case poolWithdrawUnsigned:
		return ctx.Invoke(vm.NewTransferInstruction(pool, to, 1_000_000))
	case poolDebitForeign:
		acct, err := ctx.Account(to)
		if err != nil {
			return err
		}
		acct.Lamports--
		return ctx.SetAccount(to, acct)
	case poolRecurse:
		return ctx.Invoke(*ix)
	case poolTouchReadonly:
		acct, err := ctx.Account(pool)
		if err != nil {
			return err
		}
		acct.Data = []byte{1}
		return ctx.SetAccount(pool, acct)
	case poolForeignSeeds:
		// 用另一个程序的种子冒充
		other := fixedKeypair(43).PublicKey()
		_, bump, err := derive.FindProgramAddress([][]byte{[]byte("pool")}, other)
		if err != nil {
			return err
		}
		return ctx.InvokeSigned(vm.NewTransferInstruction(pool, to, 1), [][]byte{[]byte("pool"), {bump}})
	}
	return vm.ErrInvalidInstructionData
}

func fixedKeypair(b byte) *types.Keypair {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	kp, _ := types.KeypairFromSeed(seed)
	return kp
}

func poolIx(p *poolProgram, pool, to types.PublicKey, op byte, poolWritable bool) types.Instruction {
	return types.Instruction{
		ProgramID: p.id,
		Accounts: []types.AccountMeta{
			types.NewAccountMeta(pool, false, poolWritable),
			types.NewAccountMeta(to, false, true),
			types.NewAccountMeta(types.SystemProgramID, false, false),
		},
		Data: []byte{op},
	}
}

func setupPool(t *testing.T, mutate func(*config.Config)) (*vm.Executor, *poolProgram, types.PublicKey, *types.Keypair) {
	t.Helper()
	prog, pool := newPoolProgram(t)
	x, _ := newTestExecutor(t, mutate, prog)
	alice := newKeypair(t, 1)
	require.NoError(t, x.Airdrop(alice.PublicKey(), sol))
	require.NoError(t, x.Airdrop(pool, sol))
	return x, prog, pool, alice
}

func TestInvokeSignedWithSeeds(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	rc, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolWithdrawSigned, true),
	}))
	require.NoError(t, err)
	assert.Equal(t, sol-1_000_000, balance(t, x, pool))
	assert.Equal(t, sol-5000+1_000_000, balance(t, x, alice.PublicKey()))

	assert.Contains(t, rc.Logs, "Program log: pool withdraw")
	assert.Contains(t, rc.Logs, "Program 11111111111111111111111111111111 invoke [2]")
}

func TestInvokeWithoutSeedsIsEscalation(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	_, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolWithdrawUnsigned, true),
	}))
	assert.True(t, errors.Is(err, vm.ErrPrivilegeEscalation))
	assert.Equal(t, sol, balance(t, x, pool))
}

func TestForeignSeedsRejected(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	_, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolForeignSeeds, true),
	}))
	require.Error(t, err)
	assert.Equal(t, sol, balance(t, x, pool))
}

func TestDebitForeignAccount(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	_, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolDebitForeign, true),
	}))
	assert.True(t, errors.Is(err, vm.ErrExternalAccountLamportSpend))
}

func TestWritableEscalation(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	// pool 在顶层只读，跨程序调用不能把它升级成可写
	_, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolWithdrawSigned, false),
	}))
	assert.True(t, errors.Is(err, vm.ErrPrivilegeEscalation))
}

func TestReadonlyAccountModified(t *testing.T) {
	x, prog, pool, alice := setupPool(t, nil)

	_, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolTouchReadonly, false),
	}))
	assert.True(t, errors.Is(err, vm.ErrReadonlyAccountModified))
}

func TestCallDepth(t *testing.T) {
	x, prog, pool, alice := setupPool(t, func(c *config.Config) { c.Runtime.MaxInvokeDepth = 3 })

	rc, err := x.ExecuteTx(signedTx(t, alice, 1, []types.Instruction{
		poolIx(prog, pool, alice.PublicKey(), poolRecurse, true),
	}))
	assert.True(t, errors.Is(err, vm.ErrCallDepth))
	assert.Contains(t, rc.Logs, "Program "+prog.id.String()+" invoke [3]")
	assert.NotContains(t, rc.Logs, "Program "+prog.id.String()+" invoke [4]")
}
