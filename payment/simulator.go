package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/models"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Simulator pretends to be a wallet provider. It waits for delay and then
// succeeds, or fails with probability failureRate.
type Simulator struct {
	delay       time.Duration
	failureRate float64
	log         *zap.SugaredLogger

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSimulator returns a Simulator. failureRate is clamped to [0, 1].
func NewSimulator(delay time.Duration, failureRate float64, log *zap.SugaredLogger) *Simulator {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &Simulator{
		delay:       delay,
		failureRate: failureRate,
		log:         log,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Pay waits out the simulated provider round trip and settles the charge.
// A cancelled context ends the wait early with a failed result.
func (s *Simulator) Pay(ctx context.Context, method models.PaymentMethod, amount int, referenceID string) Result {
	if amount <= 0 {
		return Result{Error: fmt.Sprintf("invalid amount %d", amount)}
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.log.Infow("payment cancelled", "method", method, "reference_id", referenceID, "error", ctx.Err())
		return Result{Error: FailureMessage}
	case <-timer.C:
	}

	s.mu.Lock()
	failed := s.rnd.Float64() < s.failureRate
	id := s.transactionID(method)
	s.mu.Unlock()

	if failed {
		s.log.Infow("payment declined", "method", method, "amount", amount, "reference_id", referenceID)
		return Result{Error: FailureMessage}
	}
	s.log.Infow("payment processed", "method", method, "amount", amount, "transaction_id", id)
	return Result{Success: true, TransactionID: id}
}

// Charge adapts Pay to the Gateway interface
func (s *Simulator) Charge(ctx context.Context, req Request) Result {
	return s.Pay(ctx, req.Method, req.Amount, req.ReferenceID)
}

// transactionID is METHOD_<unix millis>_<9 base36 chars>. Caller holds mu.
func (s *Simulator) transactionID(method models.PaymentMethod) string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[s.rnd.Intn(len(base36))])
	}
	return fmt.Sprintf("%s_%d_%s", strings.ToUpper(string(method)), s.now().UnixMilli(), b.String())
}
