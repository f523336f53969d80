// types/pubkey.go
// 账本地址：32 字节 ed25519 公钥或派生地址，文本形式为 base58
package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize 地址字节长度
const PublicKeySize = 32

var (
	// ErrInvalidPublicKey 地址长度或编码不合法
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// PublicKey 账本地址
type PublicKey [PublicKeySize]byte

// SystemProgramID 系统程序地址（全零）
var SystemProgramID = PublicKey{}

// PublicKeyFromBytes 从 32 字节构造地址
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// PublicKeyFromBase58 解析 base58 文本地址
func PublicKeyFromBase58(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(raw)
}

// MustPublicKeyFromBase58 解析失败直接 panic，只用于常量
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Bytes 返回副本
func (p PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, p[:])
	return b
}

func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

func (p PublicKey) Equals(o PublicKey) bool {
	return bytes.Equal(p[:], o[:])
}

// Short 日志里用的缩写
func (p PublicKey) Short() string {
	s := p.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}
