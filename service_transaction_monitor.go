package grantkit

import (
	"sync"
	"time"
)

// TransactionMetrics provides transaction performance and failure statistics.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

type transactionMonitor struct {
	mu            sync.Mutex
	total         int64
	success       int64
	failed        int64
	totalDuration time.Duration
	maxDuration   time.Duration
	lastReset     time.Time
}

func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{lastReset: time.Now()}
}

func (tm *transactionMonitor) record(duration time.Duration, ok bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.total++
	tm.totalDuration += duration
	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if ok {
		tm.success++
	} else {
		tm.failed++
	}
}

func (tm *transactionMonitor) metrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var avg time.Duration
	if tm.total > 0 {
		avg = tm.totalDuration / time.Duration(tm.total)
	}
	return TransactionMetrics{
		TotalTransactions:      tm.total,
		SuccessfulTransactions: tm.success,
		FailedTransactions:     tm.failed,
		AverageDuration:        avg,
		MaxDuration:            tm.maxDuration,
		LastReset:              tm.lastReset,
	}
}

func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.total = 0
	tm.success = 0
	tm.failed = 0
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.lastReset = time.Now()
}
