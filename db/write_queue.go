package db

import (
	"sync/atomic"
	"time"

	"vault/logs"

	"github.com/dgraph-io/badger/v2"
)

// WriteTask 一条待落库的写任务
type WriteTask struct {
	Key   []byte
	Value []byte
	Del   bool
}

// FlushStats 写入统计（用于观测吞吐）
type FlushStats struct {
	EnqueueSetTotal    uint64
	EnqueueDeleteTotal uint64
	FlushBatchTotal    uint64
	FlushedTaskTotal   uint64
	FlushErrTotal      uint64
	FlushDurationNs    uint64
}

// EnqueueSet 入队一条写入
func (manager *Manager) EnqueueSet(key, value string) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.pending = append(manager.pending, WriteTask{Key: []byte(key), Value: []byte(value)})
	atomic.AddUint64(&manager.stats.EnqueueSetTotal, 1)
}

// EnqueueDel 入队一条删除
func (manager *Manager) EnqueueDel(key string) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.pending = append(manager.pending, WriteTask{Key: []byte(key), Del: true})
	atomic.AddUint64(&manager.stats.EnqueueDeleteTotal, 1)
}

// DiscardPending 丢弃未落库的写任务
func (manager *Manager) DiscardPending() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.pending = manager.pending[:0]
}

// PendingCount 当前待落库条数
func (manager *Manager) PendingCount() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.pending)
}

// ForceFlush 在一个 badger 事务里提交全部待写任务，要么全部成功要么全部不生效
func (manager *Manager) ForceFlush() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if len(manager.pending) == 0 {
		return nil
	}
	start := time.Now()
	tasks := manager.pending

	err := manager.Db.Update(func(txn *badger.Txn) error {
		for _, t := range tasks {
			var err error
			if t.Del {
				err = txn.Delete(t.Key)
			} else {
				err = txn.Set(t.Key, t.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	atomic.AddUint64(&manager.stats.FlushDurationNs, uint64(time.Since(start).Nanoseconds()))
	if err != nil {
		atomic.AddUint64(&manager.stats.FlushErrTotal, 1)
		logs.Error("[DB] flush of %d tasks failed: %v", len(tasks), err)
		// 失败的批次留在队列里，由调用方 DiscardPending
		return err
	}

	atomic.AddUint64(&manager.stats.FlushBatchTotal, 1)
	atomic.AddUint64(&manager.stats.FlushedTaskTotal, uint64(len(tasks)))
	logs.Trace("[DB] flushed %d tasks in %s", len(tasks), time.Since(start))
	manager.pending = make([]WriteTask, 0, cap(tasks))
	return nil
}

// Stats 返回写入统计快照
func (manager *Manager) Stats() FlushStats {
	return FlushStats{
		EnqueueSetTotal:    atomic.LoadUint64(&manager.stats.EnqueueSetTotal),
		EnqueueDeleteTotal: atomic.LoadUint64(&manager.stats.EnqueueDeleteTotal),
		FlushBatchTotal:    atomic.LoadUint64(&manager.stats.FlushBatchTotal),
		FlushedTaskTotal:   atomic.LoadUint64(&manager.stats.FlushedTaskTotal),
		FlushErrTotal:      atomic.LoadUint64(&manager.stats.FlushErrTotal),
		FlushDurationNs:    atomic.LoadUint64(&manager.stats.FlushDurationNs),
	}
}
