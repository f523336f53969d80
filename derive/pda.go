// derive/pda.go
// 程序派生地址：由种子和程序 ID 确定性地算出一个不在 ed25519 曲线上的地址，
// 该地址没有对应私钥，只能由程序出示种子来“签名”
package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"vault/types"

	"go.dedis.ch/kyber/v3/group/edwards25519"
)

const (
	// MaxSeeds 单次派生最多的种子数（含 bump）
	MaxSeeds = 16
	// MaxSeedLen 单个种子最大字节数
	MaxSeedLen = 32
)

// pdaMarker 拼在哈希输入末尾的域分隔串
var pdaMarker = []byte("ProgramDerivedAddress")

var (
	// ErrMaxSeedLengthExceeded 种子数量或长度超限
	ErrMaxSeedLengthExceeded = errors.New("derive: max seed length exceeded")
	// ErrInvalidSeeds 派生结果落在曲线上（存在私钥），不可用
	ErrInvalidSeeds = errors.New("derive: provided seeds do not result in a valid address")
	// ErrNoViableBump bump 搜索穷尽
	ErrNoViableBump = errors.New("derive: unable to find a viable program address bump seed")
)

var suite = edwards25519.NewBlakeSHA256Ed25519()

// onCurve 测试里可替换
var onCurve = IsOnCurve

// IsOnCurve 判断 32 字节是否能解压成 ed25519 点
func IsOnCurve(b []byte) bool {
	if len(b) != types.PublicKeySize {
		return false
	}
	return suite.Point().UnmarshalBinary(b) == nil
}

// CreateProgramAddress sha256(seeds... ‖ programID ‖ marker)，结果在曲线上时报错
func CreateProgramAddress(seeds [][]byte, programID types.PublicKey) (types.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return types.PublicKey{}, fmt.Errorf("%w: %d seeds", ErrMaxSeedLengthExceeded, len(seeds))
	}
	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return types.PublicKey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLengthExceeded, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write(pdaMarker)

	var addr types.PublicKey
	copy(addr[:], h.Sum(nil))
	if onCurve(addr[:]) {
		return types.PublicKey{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress 从 255 开始递减搜索 bump，返回第一个不在曲线上的地址
func FindProgramAddress(seeds [][]byte, programID types.PublicKey) (types.PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return types.PublicKey{}, 0, fmt.Errorf("%w: no room for bump", ErrMaxSeedLengthExceeded)
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bump := []byte{255}
	withBump[len(seeds)] = bump

	for ; bump[0] > 0; bump[0]-- {
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, bump[0], nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return types.PublicKey{}, 0, err
		}
	}
	return types.PublicKey{}, 0, ErrNoViableBump
}

// VerifyProgramAddress 用缓存的 bump 重算地址并与给定地址比较
func VerifyProgramAddress(seeds [][]byte, bump uint8, programID, expected types.PublicKey) error {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	withBump[len(seeds)] = []byte{bump}

	addr, err := CreateProgramAddress(withBump, programID)
	if err != nil {
		return err
	}
	if addr != expected {
		return fmt.Errorf("derive: address mismatch: expected %s, derived %s", expected, addr)
	}
	return nil
}
