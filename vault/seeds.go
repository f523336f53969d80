package vault

import (
	"fmt"

	"vault/derive"
	"vault/types"
)

// 派生种子里的角色标签
const (
	StateSeed = "state"
	VaultSeed = "vault"
)

// StateSeeds 记录地址的种子：("state", owner)
func StateSeeds(owner types.PublicKey) [][]byte {
	return [][]byte{[]byte(StateSeed), owner.Bytes()}
}

// VaultSeeds 托管账户的种子：("vault", record)
func VaultSeeds(state types.PublicKey) [][]byte {
	return [][]byte{[]byte(VaultSeed), state.Bytes()}
}

// Accounts 一个 owner 的金库账户组
type Accounts struct {
	Owner types.PublicKey
	State types.PublicKey
	Vault types.PublicKey
}

// Derived 派生结果，附带 bump
type Derived struct {
	Accounts
	StateBump uint8
	VaultBump uint8
}

// DeriveAccounts 由 owner 派生记录和托管账户地址
func DeriveAccounts(d *derive.Deriver, owner types.PublicKey) (Derived, error) {
	state, stateBump, err := d.Find(StateSeeds(owner)...)
	if err != nil {
		return Derived{}, fmt.Errorf("derive state for %s: %w", owner, err)
	}
	vault, vaultBump, err := d.Find(VaultSeeds(state)...)
	if err != nil {
		return Derived{}, fmt.Errorf("derive vault for %s: %w", owner, err)
	}
	return Derived{
		Accounts:  Accounts{Owner: owner, State: state, Vault: vault},
		StateBump: stateBump,
		VaultBump: vaultBump,
	}, nil
}

// AccountsFor 客户端用：不带缓存直接派生
func AccountsFor(programID, owner types.PublicKey) (Accounts, error) {
	state, _, err := derive.FindProgramAddress(StateSeeds(owner), programID)
	if err != nil {
		return Accounts{}, err
	}
	vault, _, err := derive.FindProgramAddress(VaultSeeds(state), programID)
	if err != nil {
		return Accounts{}, err
	}
	return Accounts{Owner: owner, State: state, Vault: vault}, nil
}
