package reconcile

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	ledgerdomain "github.com/mcofie/itinero-web-sub003/internal/ledger/domain"
)

// Status is one stateless answer to "has this payment landed yet".
type Status struct {
	Credited bool  `json:"credited"`
	Balance  int64 `json:"balance,omitempty"`
}

// Checker answers reconciliation reads against the ledger. It holds no
// state between calls; the retry loop belongs to the caller.
type Checker struct {
	ledger ledgerdomain.Service
	log    *zap.Logger
}

type Params struct {
	fx.In

	Ledger ledgerdomain.Service
	Log    *zap.Logger
}

func NewChecker(p Params) *Checker {
	return &Checker{
		ledger: p.Ledger,
		log:    p.Log.Named("reconcile"),
	}
}

// CheckCredited reports whether a ledger entry exists for the payment
// reference, and the caller's balance when it does. An absent entry is
// a pending state, not an error: the webhook may simply be delayed.
func (c *Checker) CheckCredited(ctx context.Context, userID, reference string) (Status, error) {
	userID = strings.TrimSpace(userID)
	reference = strings.TrimSpace(reference)
	if userID == "" {
		return Status{}, ledgerdomain.ErrInvalidUser
	}
	if reference == "" {
		return Status{}, ledgerdomain.ErrInvalidReference
	}

	credited, err := c.ledger.HasReference(ctx, userID, ledgerdomain.RefTypePaystack, reference)
	if err != nil {
		return Status{}, err
	}
	if !credited {
		return Status{}, nil
	}

	balance, err := c.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Credited: true, Balance: balance}, nil
}
