// Package approval ensures the execution contract's spending authorization
// covers the requested amount before execution proceeds.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ammswap/pkg/ledger"
	"ammswap/pkg/session"
)

// ErrApprovalFailed indicates the authorization transaction failed or the
// post-authorization allowance is still insufficient. Execution is blocked;
// no funds have moved.
var ErrApprovalFailed = errors.New("approval failed")

// Coordinator sequences allowance checks and authorization requests.
type Coordinator struct {
	writer  ledger.Writer
	session *session.Session
	spender common.Address
	logger  *slog.Logger
}

// New creates a coordinator granting authorizations to spender.
func New(writer ledger.Writer, sess *session.Session, spender common.Address, logger *slog.Logger) *Coordinator {
	return &Coordinator{writer: writer, session: sess, spender: spender, logger: logger}
}

// Ensure checks the current allowance and, when short, requests an
// authorization for exactly the required amount — never unbounded — then
// confirms the new allowance is sufficient before returning. A signer
// decline propagates as ledger.ErrUserRejected so the caller can treat it as
// a cancellation rather than a failure.
func (c *Coordinator) Ensure(ctx context.Context, token common.Address, required *big.Int) error {
	info, err := c.session.Token(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if info.Allowance != nil && info.Allowance.Cmp(required) >= 0 {
		return nil
	}

	c.logger.Info("requesting authorization",
		"token", info.Symbol,
		"current", info.Allowance.String(),
		"required", required.String())

	tx, err := c.writer.Approve(ctx, token, c.spender, required)
	if err != nil {
		if errors.Is(err, ledger.ErrUserRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}
	if err := tx.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}

	// Re-read before trusting the new allowance.
	c.session.Invalidate(token)
	info, err = c.session.Token(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}
	if info.Allowance == nil || info.Allowance.Cmp(required) < 0 {
		return fmt.Errorf("%w: allowance %s still below required %s", ErrApprovalFailed, info.Allowance, required)
	}
	return nil
}
