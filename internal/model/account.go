package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NeverSynced is the last_synced_at value of a freshly created account.
var NeverSynced = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

type Account struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	CreatorID       int64     `db:"creator_id" json:"creator_id"`
	Token           string    `db:"token" json:"-"`
	BrokerAccountID string    `db:"broker_account_id" json:"broker_account_id"`
	IsSandbox       bool      `db:"is_sandbox" json:"is_sandbox"`
	LastSyncedAt    time.Time `db:"last_synced_at" json:"last_synced_at"`
}

type CoOwner struct {
	ID           int64           `db:"id" json:"id"`
	AccountID    int64           `db:"account_id" json:"account_id"`
	PersonID     int64           `db:"person_id" json:"person_id"`
	Capital      decimal.Decimal `db:"capital" json:"capital"`
	DefaultShare decimal.Decimal `db:"default_share" json:"default_share"`
}

type Share struct {
	OperationID int64           `db:"operation_id" json:"operation_id"`
	CoOwnerID   int64           `db:"co_owner_id" json:"co_owner_id"`
	Share       decimal.Decimal `db:"share" json:"share"`
}

// ShareSum is the raw, unnormalized share total of one operation.
type ShareSum struct {
	OperationID int64           `db:"operation_id" json:"operation_id"`
	Rows        int             `db:"rows" json:"rows"`
	Sum         decimal.Decimal `db:"sum" json:"sum"`
}
