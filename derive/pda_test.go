package derive

import (
	"bytes"
	"errors"
	"testing"

	"vault/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = types.MustPublicKeyFromBase58("J6GPi9FPnuN5VpxraCF9yHMYfRLw4Ap3UqGK9wT3qUvw")

func TestIsOnCurveForRealKeys(t *testing.T) {
	for i := 0; i < 8; i++ {
		kp, err := types.NewKeypair()
		require.NoError(t, err)
		pk := kp.PublicKey()
		assert.True(t, IsOnCurve(pk[:]), "ed25519 public key must be on curve")
	}
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	owner := bytes.Repeat([]byte{0xAB}, 32)
	seeds := [][]byte{[]byte("state"), owner}

	a1, b1, err := FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.False(t, IsOnCurve(a1[:]))

	// 缓存的 bump 能直接重算出同一地址
	addr, err := CreateProgramAddress([][]byte{[]byte("state"), owner, {b1}}, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, a1, addr)

	// 比找到的 bump 更大的值都落在曲线上
	for bump := int(b1) + 1; bump <= 255; bump++ {
		_, err := CreateProgramAddress([][]byte{[]byte("state"), owner, {byte(bump)}}, testProgramID)
		assert.ErrorIs(t, err, ErrInvalidSeeds)
	}
}

func TestFindProgramAddressDependsOnInputs(t *testing.T) {
	owner := bytes.Repeat([]byte{1}, 32)
	other := bytes.Repeat([]byte{2}, 32)

	a, _, err := FindProgramAddress([][]byte{[]byte("state"), owner}, testProgramID)
	require.NoError(t, err)
	b, _, err := FindProgramAddress([][]byte{[]byte("state"), other}, testProgramID)
	require.NoError(t, err)
	c, _, err := FindProgramAddress([][]byte{[]byte("vault"), owner}, testProgramID)
	require.NoError(t, err)
	d, _, err := FindProgramAddress([][]byte{[]byte("state"), owner}, types.SystemProgramID)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestSeedLimits(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLen+1)}, testProgramID)
	assert.ErrorIs(t, err, ErrMaxSeedLengthExceeded)

	tooMany := make([][]byte, MaxSeeds+1)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, err = CreateProgramAddress(tooMany, testProgramID)
	assert.ErrorIs(t, err, ErrMaxSeedLengthExceeded)

	// Find 需要给 bump 留一个位置
	_, _, err = FindProgramAddress(tooMany[:MaxSeeds], testProgramID)
	assert.ErrorIs(t, err, ErrMaxSeedLengthExceeded)
}

func TestVerifyProgramAddress(t *testing.T) {
	seeds := [][]byte{[]byte("vault"), bytes.Repeat([]byte{9}, 32)}
	addr, bump, err := FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)

	require.NoError(t, VerifyProgramAddress(seeds, bump, testProgramID, addr))

	// 其他 bump 要么落在曲线上，要么得到不同地址
	for _, wrong := range []uint8{bump - 1, bump - 2} {
		err := VerifyProgramAddress(seeds, wrong, testProgramID, addr)
		assert.Error(t, err)
	}

	var other types.PublicKey
	other[0] = 1
	assert.Error(t, VerifyProgramAddress(seeds, bump, testProgramID, other))
}

func TestDeriverCaches(t *testing.T) {
	d, err := NewDeriver(testProgramID, 8)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, d.ProgramID())

	owner := bytes.Repeat([]byte{3}, 32)
	a1, b1, err := d.Find([]byte("state"), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())

	a2, b2, err := d.Find([]byte("state"), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	direct, bump, err := FindProgramAddress([][]byte{[]byte("state"), owner}, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, direct, a1)
	assert.Equal(t, bump, b1)

	require.NoError(t, d.Verify(a1, b1, []byte("state"), owner))
}

func TestCacheKeySeparatesSeedBoundaries(t *testing.T) {
	assert.NotEqual(t,
		cacheKey([][]byte{[]byte("ab"), []byte("c")}),
		cacheKey([][]byte{[]byte("a"), []byte("bc")}),
	)
}

func TestFindProgramAddressExhausted(t *testing.T) {
	prev := onCurve
	defer func() { onCurve = prev }()

	calls := 0
	onCurve = func([]byte) bool {
		calls++
		return true
	}

	_, _, err := FindProgramAddress([][]byte{[]byte("state")}, testProgramID)
	require.ErrorIs(t, err, ErrNoViableBump)
	assert.False(t, errors.Is(err, ErrInvalidSeeds))
	assert.Equal(t, 255, calls, "bumps 255..1 are all tried, 0 never")

	// 失败结果不进缓存
	d, err := NewDeriver(testProgramID, 8)
	require.NoError(t, err)
	_, _, err = d.Find([]byte("state"))
	require.ErrorIs(t, err, ErrNoViableBump)
	assert.Equal(t, 0, d.Len())

	onCurve = prev
	_, _, err = d.Find([]byte("state"))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
}
