package db

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"vault/config"
	"vault/interfaces"
	"vault/logs"

	"github.com/dgraph-io/badger/v2"
)

// 确保 Manager 实现了 interfaces.DBManager
var _ interfaces.DBManager = (*Manager)(nil)

// Manager 封装 BadgerDB 的管理器
type Manager struct {
	Db *badger.DB
	mu sync.Mutex

	// 待落库的写任务，ForceFlush 时一次性提交
	pending []WriteTask

	stats     FlushStats
	closeOnce sync.Once
}

// NewManager 按配置打开数据库（磁盘或内存）
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var opts badger.Options
	if cfg.Database.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// badger v2 不自动创建父目录，需要手动创建
		if err := os.MkdirAll(cfg.Database.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Database.Path)
		if cfg.Database.ValueLogFileSize > 0 {
			opts.ValueLogFileSize = cfg.Database.ValueLogFileSize
		}
	}
	opts = opts.WithLogger(nil)
	if cfg.Database.NumMemtables > 0 {
		opts.NumMemtables = cfg.Database.NumMemtables
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logs.Debug("[DB] opened badger path=%q inMemory=%v", cfg.Database.Path, cfg.Database.InMemory)

	return &Manager{
		Db:      db,
		pending: make([]WriteTask, 0, 64),
	}, nil
}

// NewInMemoryManager 测试用的内存数据库
func NewInMemoryManager() (*Manager, error) {
	cfg := config.DefaultConfig()
	cfg.Database.InMemory = true
	return NewManager(cfg)
}

// Get 读取 key，不存在时返回 (nil, nil)
func (manager *Manager) Get(key string) ([]byte, error) {
	var val []byte
	err := manager.Db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Exists key 是否存在
func (manager *Manager) Exists(key string) bool {
	val, err := manager.Get(key)
	return err == nil && val != nil
}

// Scan 扫描指定前缀的所有键值对
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := manager.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close 关闭数据库，未落库的写入会被丢弃
func (manager *Manager) Close() error {
	var err error
	manager.closeOnce.Do(func() {
		manager.mu.Lock()
		if n := len(manager.pending); n > 0 {
			logs.Warn("[DB] closing with %d pending writes discarded", n)
		}
		manager.pending = nil
		manager.mu.Unlock()
		err = manager.Db.Close()
	})
	return err
}
