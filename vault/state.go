package vault

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

// StateSpace 金库记录占用的字节数：8 字节类型标识 + 两个 bump
const StateSpace = 8 + 2

// stateDiscriminator sha256("account:VaultState") 前 8 字节
var stateDiscriminator = discriminator("account", "VaultState")

func discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// State 金库记录，创建后不再修改
type State struct {
	VaultBump uint8 // 托管账户的 bump
	StateBump uint8 // 记录自身的 bump
}

// Marshal 序列化为账户数据
func (s *State) Marshal() []byte {
	out := make([]byte, 0, StateSpace)
	out = append(out, stateDiscriminator[:]...)
	return append(out, s.VaultBump, s.StateBump)
}

// UnmarshalState 从账户数据解析金库记录
func UnmarshalState(data []byte) (*State, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrAccountDiscriminatorMismatch, len(data))
	}
	if !bytes.Equal(data[:8], stateDiscriminator[:]) {
		return nil, ErrAccountDiscriminatorMismatch
	}
	if len(data) < StateSpace {
		return nil, fmt.Errorf("%w: state is %d bytes", ErrAccountDidNotDeserialize, len(data))
	}
	return &State{VaultBump: data[8], StateBump: data[9]}, nil
}
