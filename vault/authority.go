package vault

import "vault/types"

// SigningAuthority 程序替托管账户签名的凭据：派生种子 + 记录里缓存的 bump。
// 持有它等于持有托管账户的私钥，所以字段不导出，只能由本包从已校验的记录构造。
type SigningAuthority struct {
	address types.PublicKey
	seeds   [][]byte
}

// newVaultAuthority 调用前 state 与 custody 的派生关系必须已经校验过
func newVaultAuthority(stateAddr, custody types.PublicKey, st *State) SigningAuthority {
	seeds := append(VaultSeeds(stateAddr), []byte{st.VaultBump})
	return SigningAuthority{address: custody, seeds: seeds}
}

// Address 该凭据能代签的地址
func (a SigningAuthority) Address() types.PublicKey {
	return a.address
}

// signerSeeds 交给 InvokeSigned 的完整种子（含 bump）
func (a SigningAuthority) signerSeeds() [][]byte {
	out := make([][]byte, len(a.seeds))
	copy(out, a.seeds)
	return out
}
