package vm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"vault/config"
	iface "vault/interfaces"
	"vault/keys"
	"vault/logs"
	"vault/stats"
	"vault/types"
)

// Executor 账本执行器
// 单写者：一把锁覆盖 验签 → 执行 → 落库，每笔交易要么整体提交要么整体回滚
type Executor struct {
	mu      sync.Mutex
	DB      iface.DBManager
	Reg     *HandlerRegistry
	Rent    Rent
	Metrics *stats.Metrics
	ReadFn  ReadThroughFn
	ScanFn  ScanFn

	cfg  config.RuntimeConfig
	slot uint64
}

// NewExecutor 创建执行器，cfg 为 nil 时使用默认配置
func NewExecutor(db iface.DBManager, reg *HandlerRegistry, cfg *config.Config) *Executor {
	if reg == nil {
		reg = NewHandlerRegistry()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	executor := &Executor{
		DB:   db,
		Reg:  reg,
		Rent: NewRent(cfg.Rent),
		cfg:  cfg.Runtime,
	}

	// 设置ReadFn
	executor.ReadFn = func(key string) ([]byte, error) {
		return db.Get(key)
	}

	// 设置ScanFn
	executor.ScanFn = func(prefix string) (map[string][]byte, error) {
		return db.Scan(prefix)
	}

	// 恢复最近的 slot
	if raw, err := db.Get(keys.KeyLatestSlot()); err == nil && raw != nil {
		if slot, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
			executor.slot = slot
		}
	}

	return executor
}

// SetMetrics 挂载指标
func (x *Executor) SetMetrics(m *stats.Metrics) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Metrics = m
}

// Slot 最近提交的 slot
func (x *Executor) Slot() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.slot
}

// ExecuteTx 执行并提交一笔交易
// 签名或手续费校验失败时交易被拒绝，不落任何状态；
// 指令失败时回滚指令写入，但手续费和回执照常落库，返回回执和错误
func (x *Executor) ExecuteTx(tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTx
	}
	start := time.Now()

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, err := tx.VerifySignatures(); err != nil {
		x.Metrics.RecordTx("rejected", time.Since(start))
		return nil, err
	}
	txID := tx.ID()
	if x.isTxApplied(txID) {
		x.Metrics.RecordTx("rejected", time.Since(start))
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, txID)
	}

	slot := x.slot + 1
	sv := NewStateView(x.ReadFn, x.ScanFn)
	out, err := x.run(sv, tx, slot)
	if err != nil {
		x.Metrics.RecordTx("rejected", time.Since(start))
		return nil, err
	}
	rc, execErr := out.receipt, out.err

	// ========== 落库 ==========
	diff := sv.Diff()
	rc.WriteCount = len(diff)
	for _, w := range diff {
		if w.Del {
			x.DB.EnqueueDel(w.Key)
		} else {
			x.DB.EnqueueSet(w.Key, string(w.Value))
		}
	}
	rcBytes, err := json.Marshal(rc)
	if err != nil {
		x.DB.DiscardPending()
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}
	x.DB.EnqueueSet(keys.KeyReceipt(txID), string(rcBytes))
	x.DB.EnqueueSet(keys.KeyVMAppliedTx(txID), rc.Status)
	x.DB.EnqueueSet(keys.KeySlotTx(slot), txID)
	x.DB.EnqueueSet(keys.KeyLatestSlot(), strconv.FormatUint(slot, 10))

	if err := x.DB.ForceFlush(); err != nil {
		x.DB.DiscardPending()
		return nil, fmt.Errorf("commit tx %s: %w", txID, err)
	}
	x.slot = slot

	x.Metrics.RecordFee(rc.Fee)
	x.Metrics.RecordTx(rc.Status, time.Since(start))
	if execErr != nil {
		logs.Verbose("[VM] tx %s failed at slot %d: %v", shortID(txID), slot, execErr)
		return rc, execErr
	}
	logs.Verbose("[VM] tx %s committed at slot %d, %d writes", shortID(txID), slot, rc.WriteCount)
	return rc, nil
}

// Simulate 在临时视图上执行交易，不落库
func (x *Executor) Simulate(tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTx
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, err := tx.VerifySignatures(); err != nil {
		return nil, err
	}
	sv := NewStateView(x.ReadFn, x.ScanFn)
	out, err := x.run(sv, tx, x.slot+1)
	if err != nil {
		return nil, err
	}
	out.receipt.WriteCount = len(sv.Diff())
	return out.receipt, out.err
}

// runOutcome 一次执行的结果；err 为指令执行错误，写入已回滚
type runOutcome struct {
	receipt *Receipt
	err     error
}

// run 扣费并执行所有指令
// 返回错误表示交易被拒绝（无法扣费），此时 sv 内容无效
func (x *Executor) run(sv StateView, tx *types.Transaction, slot uint64) (*runOutcome, error) {
	msg := &tx.Message
	fee, err := SafeMul(x.cfg.LamportsPerSignature, uint64(len(tx.Signatures)))
	if err != nil {
		return nil, err
	}
	if err := x.chargeFee(sv, msg.FeePayer, fee); err != nil {
		return nil, err
	}

	// 扣费之后的账户快照，用于租金状态检查
	touched := touchedAccounts(msg)
	pre := make(map[types.PublicKey]*types.Account, len(touched))
	for _, pk := range touched {
		acct, err := GetAccount(sv, pk)
		if err != nil {
			return nil, err
		}
		pre[pk] = acct
	}

	snap := sv.Snapshot()
	txLogs := make([]string, 0, 8)
	var execErr error
	for i := range msg.Instructions {
		ix := &msg.Instructions[i]
		signers := make(map[types.PublicKey]bool)
		for _, m := range ix.Accounts {
			if m.IsSigner {
				signers[m.PublicKey] = true
			}
		}
		err := x.processInstruction(sv, ix, signers, nil, 1, &txLogs)
		status := StatusSucceed
		if err != nil {
			status = StatusFailed
		}
		x.Metrics.RecordInstruction(ix.ProgramID.String(), status)
		if err != nil {
			execErr = fmt.Errorf("instruction %d: %w", i, err)
			break
		}
	}
	if execErr == nil && x.cfg.EnforceRentState {
		execErr = x.checkRentState(sv, touched, pre)
	}
	if execErr != nil {
		if err := sv.Revert(snap); err != nil {
			return nil, err
		}
	}

	rc := &Receipt{
		TxID:      tx.ID(),
		Status:    StatusSucceed,
		Slot:      slot,
		Timestamp: time.Now().Unix(),
		Fee:       fee,
		Logs:      txLogs,
	}
	if execErr != nil {
		rc.Status = StatusFailed
		rc.Error = execErr.Error()
	}
	return &runOutcome{receipt: rc, err: execErr}, nil
}

// chargeFee 手续费支付者必须是无数据的系统账户
func (x *Executor) chargeFee(sv StateView, payer types.PublicKey, fee uint64) error {
	acct, err := GetAccount(sv, payer)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("%w: fee payer %s", ErrAccountNotFound, payer)
	}
	if acct.Owner != types.SystemProgramID || len(acct.Data) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAccountForFee, payer)
	}
	if acct.Lamports < fee {
		return fmt.Errorf("%w: %s has %d, fee %d", ErrInsufficientFundsForFee, payer, acct.Lamports, fee)
	}
	remain := acct.Lamports - fee
	if x.cfg.EnforceRentState && remain > 0 && remain < x.Rent.MinimumBalance(0) {
		return fmt.Errorf("%w: fee payer %s would keep %d", ErrInsufficientFundsForRent, payer, remain)
	}
	acct.Lamports = remain
	SetAccount(sv, payer, acct)
	return nil
}

// checkRentState 交易结束时账户不能落在 (0, 免租下限) 区间，
// 除非它之前就欠租、数据长度没变且余额没有增加
func (x *Executor) checkRentState(sv StateView, touched []types.PublicKey, pre map[types.PublicKey]*types.Account) error {
	for _, pk := range touched {
		post, err := GetAccount(sv, pk)
		if err != nil {
			return err
		}
		if post == nil {
			continue
		}
		need := x.Rent.MinimumBalance(len(post.Data))
		if post.Lamports >= need {
			continue
		}
		if before := pre[pk]; before != nil &&
			before.Lamports < x.Rent.MinimumBalance(len(before.Data)) &&
			len(before.Data) == len(post.Data) &&
			post.Lamports <= before.Lamports {
			continue
		}
		return fmt.Errorf("%w: %s left with %d, minimum %d", ErrInsufficientFundsForRent, pk, post.Lamports, need)
	}
	return nil
}

// touchedAccounts 交易引用的全部地址，按出现顺序去重
// 跨程序调用只能使用调用方已有的账户，所以顶层列表已覆盖所有可写账户
func touchedAccounts(msg *types.Message) []types.PublicKey {
	out := []types.PublicKey{msg.FeePayer}
	seen := map[types.PublicKey]struct{}{msg.FeePayer: {}}
	for _, ix := range msg.Instructions {
		for _, m := range ix.Accounts {
			if _, ok := seen[m.PublicKey]; ok {
				continue
			}
			seen[m.PublicKey] = struct{}{}
			out = append(out, m.PublicKey)
		}
	}
	return out
}

// Airdrop 直接给地址记账（创世/测试注资）
func (x *Executor) Airdrop(addr types.PublicKey, lamports uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	sv := NewStateView(x.ReadFn, x.ScanFn)
	acct, err := GetAccountOrEmpty(sv, addr)
	if err != nil {
		return err
	}
	if acct.Lamports, err = SafeAdd(acct.Lamports, lamports); err != nil {
		return err
	}
	if need := x.Rent.MinimumBalance(len(acct.Data)); x.cfg.EnforceRentState && acct.Lamports > 0 && acct.Lamports < need {
		return fmt.Errorf("%w: airdrop leaves %s with %d, minimum %d", ErrInsufficientFundsForRent, addr, acct.Lamports, need)
	}
	SetAccount(sv, addr, acct)

	for _, w := range sv.Diff() {
		if w.Del {
			x.DB.EnqueueDel(w.Key)
		} else {
			x.DB.EnqueueSet(w.Key, string(w.Value))
		}
	}
	if err := x.DB.ForceFlush(); err != nil {
		x.DB.DiscardPending()
		return fmt.Errorf("airdrop: %w", err)
	}
	logs.Debug("[VM] airdrop %s lamports to %s", types.FormatLamports(lamports), addr.Short())
	return nil
}

// GetAccount 读取已提交的账户，不存在时返回 (nil, nil)
func (x *Executor) GetAccount(addr types.PublicKey) (*types.Account, error) {
	raw, err := x.DB.Get(keys.KeyAccount(addr.String()))
	if err != nil || raw == nil {
		return nil, err
	}
	return DecodeAccount(raw)
}

// GetBalance 已提交余额，不存在的账户为 0
func (x *Executor) GetBalance(addr types.PublicKey) (uint64, error) {
	acct, err := x.GetAccount(addr)
	if err != nil || acct == nil {
		return 0, err
	}
	return acct.Lamports, nil
}

// GetReceipt 读取交易回执，不存在时返回 (nil, nil)
func (x *Executor) GetReceipt(txID string) (*Receipt, error) {
	raw, err := x.DB.Get(keys.KeyReceipt(txID))
	if err != nil || raw == nil {
		return nil, err
	}
	var rc Receipt
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", txID, err)
	}
	return &rc, nil
}

// GetTransactionStatus 已处理交易的状态，未处理返回 "PENDING"
func (x *Executor) GetTransactionStatus(txID string) (string, error) {
	status, err := x.DB.Get(keys.KeyVMAppliedTx(txID))
	if err != nil {
		return "", err
	}
	if status == nil {
		return "PENDING", nil
	}
	return string(status), nil
}

func (x *Executor) isTxApplied(txID string) bool {
	if txID == "" {
		return false
	}
	status, err := x.DB.Get(keys.KeyVMAppliedTx(txID))
	if err != nil || status == nil {
		return false
	}
	return true
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
