package persist

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/knhk/core/internal/receipt"
)

// SpannerChain persists the receipt chain head so a resumed pipeline picks
// up where a prior run left off instead of restarting from genesis (§4.8).
//
// Grounded on the teacher's internal/reputation/spanner.go SpannerWallet:
// the same spanner.NewClient construction, ReadRow/Apply for point
// lookups and single-row upserts. Load reads through a read-only
// transaction bounded by MaxStaleness(0), so it never returns a stale head.
type SpannerChain struct {
	client *spanner.Client
	table  string
}

// NewSpannerChain opens a Spanner database connection.
func NewSpannerChain(ctx context.Context, project, instance, dbName string) (*SpannerChain, error) {
	dbPath := fmt.Sprintf("projects/%s/instances/%s/databases/%s", project, instance, dbName)
	client, err := spanner.NewClient(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("spannerchain: new client: %w", err)
	}
	return &SpannerChain{client: client, table: "ChainHeads"}, nil
}

// Load fetches the persisted head for cycleGroup, or (zero value, false)
// if no row exists yet.
func (c *SpannerChain) Load(ctx context.Context, cycleGroup string) ([receipt.DigestSize]byte, bool, error) {
	roTx := c.client.ReadOnlyTransaction().WithTimestampBound(spanner.MaxStaleness(0))
	defer roTx.Close()

	row, err := roTx.ReadRow(ctx, c.table, spanner.Key{cycleGroup}, []string{"Head"})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return [receipt.DigestSize]byte{}, false, nil
		}
		return [receipt.DigestSize]byte{}, false, fmt.Errorf("spannerchain: read: %w", err)
	}

	var head []byte
	if err := row.Columns(&head); err != nil {
		return [receipt.DigestSize]byte{}, false, fmt.Errorf("spannerchain: columns: %w", err)
	}
	var out [receipt.DigestSize]byte
	copy(out[:], head)
	return out, true, nil
}

// Save upserts the current head for cycleGroup.
func (c *SpannerChain) Save(ctx context.Context, cycleGroup string, head [receipt.DigestSize]byte) error {
	_, err := c.client.Apply(ctx, []*spanner.Mutation{
		spanner.InsertOrUpdate(c.table,
			[]string{"CycleGroup", "Head", "UpdatedAt"},
			[]interface{}{cycleGroup, head[:], spanner.CommitTimestamp},
		),
	})
	if err != nil {
		return fmt.Errorf("spannerchain: save: %w", err)
	}
	return nil
}

// History returns the most recently saved heads (by UpdatedAt, up to limit
// rows) keyed by cycle group. The result is a map, so it carries no order.
func (c *SpannerChain) History(ctx context.Context, limit int) (map[string][]byte, error) {
	stmt := spanner.Statement{SQL: fmt.Sprintf("SELECT CycleGroup, Head FROM %s ORDER BY UpdatedAt DESC LIMIT @limit", c.table), Params: map[string]interface{}{"limit": int64(limit)}}
	iter := c.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	out := make(map[string][]byte)
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("spannerchain: history: %w", err)
		}
		var group string
		var head []byte
		if err := row.Columns(&group, &head); err != nil {
			return nil, fmt.Errorf("spannerchain: scan: %w", err)
		}
		out[group] = head
	}
	return out, nil
}

func (c *SpannerChain) Close() error {
	c.client.Close()
	return nil
}
