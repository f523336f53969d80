// types/transaction.go
package types

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrMissingSigner         = errors.New("missing keypair for required signer")
	ErrSignatureCount        = errors.New("signature count does not match required signers")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrEmptyTransaction      = errors.New("transaction has no instructions")
)

// AccountMeta 指令引用的账户及其权限
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta 便捷构造
func NewAccountMeta(pk PublicKey, signer, writable bool) AccountMeta {
	return AccountMeta{PublicKey: pk, IsSigner: signer, IsWritable: writable}
}

// Instruction 对某个程序的一次调用
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Message 交易中被签名的部分
type Message struct {
	FeePayer     PublicKey
	Nonce        uint64 // 区分内容相同的交易
	Instructions []Instruction
}

// Signers 需要签名的地址，费用支付者排第一，其余按出现顺序去重
func (m *Message) Signers() []PublicKey {
	out := []PublicKey{m.FeePayer}
	seen := map[PublicKey]struct{}{m.FeePayer: {}}
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if !meta.IsSigner {
				continue
			}
			if _, ok := seen[meta.PublicKey]; ok {
				continue
			}
			seen[meta.PublicKey] = struct{}{}
			out = append(out, meta.PublicKey)
		}
	}
	return out
}

// Serialize 规范化序列化（protobuf wire 格式，字段顺序固定）
func (m *Message) Serialize() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, m.FeePayer[:])
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, m.Nonce)
	for i := range m.Instructions {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendBytes(buf, serializeInstruction(&m.Instructions[i]))
	}
	return buf
}

func serializeInstruction(ix *Instruction) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, ix.ProgramID[:])
	for _, meta := range ix.Accounts {
		var mb []byte
		mb = protowire.AppendTag(mb, 1, protowire.BytesType)
		mb = protowire.AppendBytes(mb, meta.PublicKey[:])
		mb = protowire.AppendTag(mb, 2, protowire.VarintType)
		mb = protowire.AppendVarint(mb, protowire.EncodeBool(meta.IsSigner))
		mb = protowire.AppendTag(mb, 3, protowire.VarintType)
		mb = protowire.AppendVarint(mb, protowire.EncodeBool(meta.IsWritable))
		buf = protowire.AppendTag(buf, 2, protowire.BytesType)
		buf = protowire.AppendBytes(buf, mb)
	}
	buf = protowire.AppendTag(buf, 3, protowire.BytesType)
	buf = protowire.AppendBytes(buf, ix.Data)
	return buf
}

// Transaction 已签名交易
type Transaction struct {
	Message    Message
	Signatures []Signature // 与 Message.Signers() 一一对应
}

// NewTransaction 构造未签名交易
func NewTransaction(feePayer PublicKey, nonce uint64, ixs ...Instruction) *Transaction {
	return &Transaction{
		Message: Message{
			FeePayer:     feePayer,
			Nonce:        nonce,
			Instructions: ixs,
		},
	}
}

// Sign 用给定密钥对为所有必需签名者签名
func (tx *Transaction) Sign(kps ...*Keypair) error {
	byKey := make(map[PublicKey]*Keypair, len(kps))
	for _, kp := range kps {
		if kp != nil {
			byKey[kp.PublicKey()] = kp
		}
	}
	msg := tx.Message.Serialize()
	signers := tx.Message.Signers()
	sigs := make([]Signature, len(signers))
	for i, pk := range signers {
		kp, ok := byKey[pk]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingSigner, pk)
		}
		sigs[i] = kp.Sign(msg)
	}
	tx.Signatures = sigs
	return nil
}

// ID 交易 ID 即第一个签名的 base58
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return tx.Signatures[0].String()
}

// VerifySignatures 校验签名，成功时返回已验证的签名者集合
func (tx *Transaction) VerifySignatures() (map[PublicKey]bool, error) {
	if len(tx.Message.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	signers := tx.Message.Signers()
	if len(signers) != len(tx.Signatures) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrSignatureCount, len(signers), len(tx.Signatures))
	}
	msg := tx.Message.Serialize()
	verified := make(map[PublicKey]bool, len(signers))
	for i, pk := range signers {
		if !VerifySignature(pk, msg, tx.Signatures[i]) {
			return nil, fmt.Errorf("%w: signer %s", ErrSignatureVerification, pk)
		}
		verified[pk] = true
	}
	return verified, nil
}
