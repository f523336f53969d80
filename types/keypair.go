// types/keypair.go
package types

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
)

// SignatureSize ed25519 签名长度
const SignatureSize = ed25519.SignatureSize

// Signature 交易签名
type Signature [SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Keypair ed25519 密钥对，只在客户端/测试里持有私钥
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair 随机生成密钥对
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv}, nil
}

// KeypairFromSeed 由 32 字节种子确定性生成密钥对
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keypair seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey 公钥即地址
func (k *Keypair) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.priv.Public().(ed25519.PublicKey))
	return pk
}

// Sign 对消息签名
func (k *Keypair) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.priv, msg))
	return sig
}

// VerifySignature 校验 ed25519 签名
func VerifySignature(pk PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig[:])
}
