// config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProgramID 金库程序的默认部署地址
const DefaultProgramID = "J6GPi9FPnuN5VpxraCF9yHMYfRLw4Ap3UqGK9wT3qUvw"

// Config 主配置结构
type Config struct {
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Rent     RentConfig     `yaml:"rent"`
	Database DatabaseConfig `yaml:"database"`
	Vault    VaultConfig    `yaml:"vault"`
	Log      LogConfig      `yaml:"log"`
}

// RuntimeConfig 账本运行时配置
type RuntimeConfig struct {
	LamportsPerSignature uint64 `yaml:"lamportsPerSignature"` // 5000
	EnforceRentState     bool   `yaml:"enforceRentState"`     // true：交易结束时账户不得落入 (0, 免租下限) 区间
	MaxInvokeDepth       int    `yaml:"maxInvokeDepth"`       // 4，跨程序调用最大深度
}

// RentConfig 租金参数
type RentConfig struct {
	LamportsPerByteYear    uint64 `yaml:"lamportsPerByteYear"`    // 3480
	ExemptionYears         uint64 `yaml:"exemptionYears"`         // 2
	AccountStorageOverhead uint64 `yaml:"accountStorageOverhead"` // 128
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path             string `yaml:"path"`             // "./data"
	InMemory         bool   `yaml:"inMemory"`         // false
	ValueLogFileSize int64  `yaml:"valueLogFileSize"` // 64 << 20 (64MB)
	NumMemtables     int    `yaml:"numMemtables"`     // 2
}

// VaultConfig 金库程序配置
type VaultConfig struct {
	ProgramID           string         `yaml:"programId"`
	DerivationCacheSize int            `yaml:"derivationCacheSize"` // 4096
	Withdraw            WithdrawConfig `yaml:"withdraw"`
}

// WithdrawConfig 提现额外校验
// 默认全部关闭，与链上程序的实际行为一致
type WithdrawConfig struct {
	RequireSufficientBalance   bool `yaml:"requireSufficientBalance"`
	RequireRentExemptRemainder bool `yaml:"requireRentExemptRemainder"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // "info"
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LamportsPerSignature: 5000,
			EnforceRentState:     true,
			MaxInvokeDepth:       4,
		},
		Rent: RentConfig{
			LamportsPerByteYear:    3480,
			ExemptionYears:         2,
			AccountStorageOverhead: 128,
		},
		Database: DatabaseConfig{
			Path:             "./data",
			InMemory:         false,
			ValueLogFileSize: 64 << 20,
			NumMemtables:     2,
		},
		Vault: VaultConfig{
			ProgramID:           DefaultProgramID,
			DerivationCacheSize: 4096,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile 从 YAML 文件加载配置，未出现的字段保留默认值
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Vault.ProgramID == "" {
		return fmt.Errorf("vault.programId must be set")
	}
	if c.Vault.DerivationCacheSize <= 0 {
		return fmt.Errorf("vault.derivationCacheSize must be positive")
	}
	if c.Runtime.MaxInvokeDepth <= 0 {
		return fmt.Errorf("runtime.maxInvokeDepth must be positive")
	}
	if c.Rent.ExemptionYears == 0 {
		return fmt.Errorf("rent.exemptionYears must be positive")
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path must be set unless inMemory")
	}
	return nil
}
