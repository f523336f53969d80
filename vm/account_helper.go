package vm

import (
	"fmt"

	"vault/keys"
	"vault/types"

	"google.golang.org/protobuf/encoding/protowire"
)

// ============================================
// 账户读写辅助函数
// 存储格式：v1_account_{base58 address} → protobuf wire 编码的 Account
// ============================================

const (
	fieldLamports   protowire.Number = 1
	fieldOwner      protowire.Number = 2
	fieldExecutable protowire.Number = 3
	fieldData       protowire.Number = 4
)

// EncodeAccount 序列化账户
func EncodeAccount(acct *types.Account) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldLamports, protowire.VarintType)
	buf = protowire.AppendVarint(buf, acct.Lamports)
	buf = protowire.AppendTag(buf, fieldOwner, protowire.BytesType)
	buf = protowire.AppendBytes(buf, acct.Owner[:])
	if acct.Executable {
		buf = protowire.AppendTag(buf, fieldExecutable, protowire.VarintType)
		buf = protowire.AppendVarint(buf, 1)
	}
	if len(acct.Data) > 0 {
		buf = protowire.AppendTag(buf, fieldData, protowire.BytesType)
		buf = protowire.AppendBytes(buf, acct.Data)
	}
	return buf
}

// DecodeAccount 反序列化账户，未知字段跳过
func DecodeAccount(b []byte) (*types.Account, error) {
	acct := &types.Account{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldLamports && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: lamports: %v", ErrInvalidAccountData, protowire.ParseError(n))
			}
			acct.Lamports = v
			b = b[n:]
		case num == fieldOwner && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAccountData, protowire.ParseError(n))
			}
			owner, err := types.PublicKeyFromBytes(v)
			if err != nil {
				return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAccountData, err)
			}
			acct.Owner = owner
			b = b[n:]
		case num == fieldExecutable && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: executable: %v", ErrInvalidAccountData, protowire.ParseError(n))
			}
			acct.Executable = protowire.DecodeBool(v)
			b = b[n:]
		case num == fieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: data: %v", ErrInvalidAccountData, protowire.ParseError(n))
			}
			acct.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return acct, nil
}

// GetAccount 读取账户，不存在时返回 (nil, nil)
func GetAccount(sv StateView, addr types.PublicKey) (*types.Account, error) {
	data, exists, err := sv.Get(keys.KeyAccount(addr.String()))
	if err != nil {
		return nil, err
	}
	if !exists || len(data) == 0 {
		return nil, nil
	}
	return DecodeAccount(data)
}

// GetAccountOrEmpty 不存在的地址视为系统程序持有的零余额账户
func GetAccountOrEmpty(sv StateView, addr types.PublicKey) (*types.Account, error) {
	acct, err := GetAccount(sv, addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return &types.Account{Owner: types.SystemProgramID}, nil
	}
	return acct, nil
}

// SetAccount 写入账户；lamports 归零的账户直接删除（账本回收）
func SetAccount(sv StateView, addr types.PublicKey, acct *types.Account) {
	key := keys.KeyAccount(addr.String())
	if acct == nil || acct.Lamports == 0 {
		sv.Del(key)
		return
	}
	sv.Set(key, EncodeAccount(acct))
}

// GetLamports 读取余额，不存在时为 0
func GetLamports(sv StateView, addr types.PublicKey) (uint64, error) {
	acct, err := GetAccount(sv, addr)
	if err != nil || acct == nil {
		return 0, err
	}
	return acct.Lamports, nil
}
