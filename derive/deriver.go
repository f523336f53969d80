// derive/deriver.go
package derive

import (
	"encoding/binary"

	"vault/logs"
	"vault/types"

	lru "github.com/hashicorp/golang-lru"
)

// Result 一次 bump 搜索的结果
type Result struct {
	Address types.PublicKey
	Bump    uint8
}

// Deriver 绑定单个程序 ID 的派生器，缓存 bump 搜索结果
type Deriver struct {
	programID types.PublicKey
	cache     *lru.Cache
}

// NewDeriver 创建派生器，cacheSize<=0 时用 1024
func NewDeriver(programID types.PublicKey, cacheSize int) (*Deriver, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Deriver{programID: programID, cache: cache}, nil
}

// ProgramID 派生使用的程序 ID
func (d *Deriver) ProgramID() types.PublicKey {
	return d.programID
}

// Find 带缓存的 FindProgramAddress
func (d *Deriver) Find(seeds ...[]byte) (types.PublicKey, uint8, error) {
	key := cacheKey(seeds)
	if v, ok := d.cache.Get(key); ok {
		r := v.(Result)
		return r.Address, r.Bump, nil
	}
	addr, bump, err := FindProgramAddress(seeds, d.programID)
	if err != nil {
		return types.PublicKey{}, 0, err
	}
	d.cache.Add(key, Result{Address: addr, Bump: bump})
	logs.Trace("[Derive] program=%s addr=%s bump=%d", d.programID.Short(), addr.Short(), bump)
	return addr, bump, nil
}

// Verify 见 VerifyProgramAddress
func (d *Deriver) Verify(expected types.PublicKey, bump uint8, seeds ...[]byte) error {
	return VerifyProgramAddress(seeds, bump, d.programID, expected)
}

// Len 缓存条目数
func (d *Deriver) Len() int {
	return d.cache.Len()
}

// cacheKey 每个种子前加长度，避免 ["ab","c"] 与 ["a","bc"] 撞键
func cacheKey(seeds [][]byte) string {
	var buf []byte
	for _, s := range seeds {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	return string(buf)
}
