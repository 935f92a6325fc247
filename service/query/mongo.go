package query

/*
	Package `query` provides interface for querying mongo db.
	It is basically nothing but a wrap over
	https://github.com/mongodb/mongo-go-driver
	so please read the driver document for any detail.
*/

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")

	// ErrCollScan is error for unindexed query
	ErrCollScan = fmt.Errorf("COLLSCAN is not allowed")

	// ErrUnavailable is returned when mongo keeps failing with
	// connection-level errors after retries
	ErrUnavailable = fmt.Errorf("store unavailable")
)

type patchOp struct {
	patchMany bool
}

// PatchOp is an alias for functional argument
type PatchOp func(*patchOp)

// WithPatchMany specifies patchMany setting. To patch all entries selected, set patchMany = true.
func WithPatchMany(patchMany bool) PatchOp {
	return func(o *patchOp) {
		o.patchMany = patchMany
	}
}

// TxRunner is the subset of Mongo needed to commit several writes as
// one atomic unit. The bidding path relies on it to pair the auction
// update with the ledger append.
type TxRunner interface {
	RunWithTransaction(context ctx.Ctx, run func(ctx.Ctx) error) error
}

// Mongo abstract the mongo layer.
type Mongo interface {
	TxRunner

	// Insert inserts a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne get data from the table
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count return counting for matched entry in the table
	// https://docs.mongodb.com/manual/reference/method/db.collection.countDocuments
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// Search sort order by `sort` argument (ex "timestamp" ascending, or "-timestamp" descending)
	// if `sort` is "", the sort action is skipped, and the MongoDB does not guarantee the order of query results.
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// RemoveAll deletes every entry matching the selector
	RemoveAll(context ctx.Ctx, table domain.Table, selector interface{}) (int64, error)

	// Patch patch an entry, if the selector not exist, return err.
	// To patch all entries selected, set WithPatchMany(true).
	// Return ErrNotFound if selector does not match any documents
	Patch(context ctx.Ctx, table domain.Table, selector, update interface{}, ops ...PatchOp) error

	// CustomPatch patch an entry with customized mongo query.
	// The selector makes this a conditional write: when it matches no
	// document nothing is applied and ErrNotFound is returned (with
	// upsert false), which is how optimistic-concurrency callers
	// detect a lost race.
	CustomPatch(context ctx.Ctx, table domain.Table, selector, update bson.M, upsert bool) error

	// Increment let you increase a field number.
	// If entry not exist, insert it.
	Increment(context ctx.Ctx, table domain.Table, selector, result interface{}, field string, inc interface{}) error
}
