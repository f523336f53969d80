package vault

import (
	"crypto/sha256"
	"testing"

	"vault/config"
	"vault/derive"
	"vault/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLayout(t *testing.T) {
	st := &State{VaultBump: 254, StateBump: 253}
	data := st.Marshal()
	require.Len(t, data, StateSpace)

	sum := sha256.Sum256([]byte("account:VaultState"))
	assert.Equal(t, sum[:8], data[:8])
	assert.Equal(t, []byte{254, 253}, data[8:])

	got, err := UnmarshalState(data)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestUnmarshalStateErrors(t *testing.T) {
	_, err := UnmarshalState(nil)
	assert.ErrorIs(t, err, ErrAccountDiscriminatorMismatch)

	_, err = UnmarshalState(make([]byte, StateSpace))
	assert.ErrorIs(t, err, ErrAccountDiscriminatorMismatch)

	data := (&State{}).Marshal()
	_, err = UnmarshalState(data[:9])
	assert.ErrorIs(t, err, ErrAccountDidNotDeserialize)
}

func TestInstructionDiscriminators(t *testing.T) {
	for name, disc := range map[string][8]byte{
		"initialize": initializeDiscriminator,
		"deposit":    depositDiscriminator,
		"withdraw":   withdrawDiscriminator,
		"close":      closeDiscriminator,
	} {
		sum := sha256.Sum256([]byte("global:" + name))
		assert.Equal(t, sum[:8], disc[:], name)
	}

	ix := NewWithdrawInstruction(types.PublicKey{1}, Accounts{}, 0x0102)
	require.Len(t, ix.Data, 16)
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, ix.Data[8:])
	amount, err := decodeAmount(ix.Data[8:])
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102), amount)
}

func TestInstructionAccountPrivileges(t *testing.T) {
	accts := Accounts{Owner: types.PublicKey{1}, State: types.PublicKey{2}, Vault: types.PublicKey{3}}
	pid := types.PublicKey{4}

	dep := NewDepositInstruction(pid, accts, 1)
	require.Len(t, dep.Accounts, 4)
	assert.True(t, dep.Accounts[0].IsSigner)
	assert.False(t, dep.Accounts[1].IsWritable, "record is read-only for payments")
	assert.True(t, dep.Accounts[2].IsWritable)
	assert.Equal(t, types.SystemProgramID, dep.Accounts[3].PublicKey)

	cl := NewCloseInstruction(pid, accts)
	assert.True(t, cl.Accounts[1].IsWritable)
}

func TestSigningAuthorityDerivesCustody(t *testing.T) {
	prog, err := NewProgram(config.DefaultConfig().Vault)
	require.NoError(t, err)
	owner := types.PublicKey{7}

	d, err := prog.Derive(owner)
	require.NoError(t, err)
	auth := newVaultAuthority(d.State, d.Vault, &State{VaultBump: d.VaultBump, StateBump: d.StateBump})
	assert.Equal(t, d.Vault, auth.Address())

	addr, err := derive.CreateProgramAddress(auth.signerSeeds(), prog.ProgramID())
	require.NoError(t, err)
	assert.Equal(t, d.Vault, addr)

	// 换一个程序 ID，同样的种子得不到托管地址
	other, err := derive.CreateProgramAddress(auth.signerSeeds(), types.PublicKey{8})
	if err == nil {
		assert.NotEqual(t, d.Vault, other)
	}

	// 返回的是副本
	seeds := auth.signerSeeds()
	seeds[0] = []byte("hijack")
	assert.Equal(t, []byte(VaultSeed), auth.signerSeeds()[0])
}

func TestNewProgramRejectsBadID(t *testing.T) {
	cfg := config.DefaultConfig().Vault
	cfg.ProgramID = "not-base58-0OIl"
	_, err := NewProgram(cfg)
	assert.Error(t, err)
}
