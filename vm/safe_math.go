package vm

import (
	"errors"
	"math/bits"
)

// safe_math.go 提供带溢出检查的 lamports 运算

var (
	// ErrOverflow 加法/乘法溢出
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow 减法下溢（结果为负数）
	ErrUnderflow = errors.New("arithmetic underflow")
)

// SafeAdd 安全加法：a + b
func SafeAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SafeSub 安全减法：a - b，a < b 时返回 ErrUnderflow
func SafeSub(a, b uint64) (uint64, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// SafeMul 安全乘法：a * b
func SafeMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}
