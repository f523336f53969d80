package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vault"

// Metrics 账本执行指标
type Metrics struct {
	txTotal        *prometheus.CounterVec
	feesCollected  prometheus.Counter
	lamportsMoved  *prometheus.CounterVec
	execLatency    prometheus.Histogram
	instructionCnt *prometheus.CounterVec
}

// NewMetrics 创建并注册指标；reg 为 nil 时不注册（测试里各自持有 registry）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Executed transactions by final status.",
		}, []string{"status"}),
		feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_collected_lamports_total",
			Help:      "Signature fees charged to fee payers.",
		}),
		lamportsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lamports_transferred_total",
			Help:      "Lamports moved by the native transfer primitive, by signer kind.",
		}, []string{"authority"}),
		execLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_exec_seconds",
			Help:      "Wall time from signature check to store flush.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		instructionCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Top-level instructions dispatched, by program and result.",
		}, []string{"program", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.txTotal, m.feesCollected, m.lamportsMoved, m.execLatency, m.instructionCnt)
	}
	return m
}

// RecordTx 记录一笔交易的最终状态和耗时
func (m *Metrics) RecordTx(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(status).Inc()
	m.execLatency.Observe(d.Seconds())
}

// RecordFee 记录收取的签名费
func (m *Metrics) RecordFee(lamports uint64) {
	if m == nil || lamports == 0 {
		return
	}
	m.feesCollected.Add(float64(lamports))
}

// RecordTransfer 记录原生转账金额，authority 为 "key" 或 "seeds"
func (m *Metrics) RecordTransfer(authority string, lamports uint64) {
	if m == nil || lamports == 0 {
		return
	}
	m.lamportsMoved.WithLabelValues(authority).Add(float64(lamports))
}

// RecordInstruction 记录顶层指令结果
func (m *Metrics) RecordInstruction(program, status string) {
	if m == nil {
		return
	}
	m.instructionCnt.WithLabelValues(program, status).Inc()
}

// TxCounter 测试用：按状态取交易计数器
func (m *Metrics) TxCounter(status string) prometheus.Counter {
	return m.txTotal.WithLabelValues(status)
}

// TransferCounter 测试用：按签名方式取转账计数器
func (m *Metrics) TransferCounter(authority string) prometheus.Counter {
	return m.lamportsMoved.WithLabelValues(authority)
}

// FeeCounter 测试用
func (m *Metrics) FeeCounter() prometheus.Counter {
	return m.feesCollected
}
