package deal

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
)

// ReconciliationError reports an operation that can't be attached to a deal.
// The classification of its window is rolled back, the ledger keeps the row.
type ReconciliationError struct {
	AccountID   int64
	FIGI        string
	Type        model.OperationType
	Date        time.Time
	SecondaryID string
	From, To    time.Time
	Reason      string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("can't reconcile %s %s of %s at %s for account %d in [%s, %s]: %s",
		e.Type, e.SecondaryID, e.FIGI, e.Date.Format(time.RFC3339Nano), e.AccountID,
		e.From.Format(time.RFC3339), e.To.Format(time.RFC3339), e.Reason)
}
