package sink

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	supabase "github.com/supabase-community/supabase-go"
)

// supabaseRow is the durable mirror of one emitted record, written to the
// "emitted_records" table.
type supabaseRow struct {
	ReceiptID string `json:"receipt_id"`
	TenantID  string `json:"tenant_id"`
	Parked    bool   `json:"parked"`
	ErrorTag  string `json:"error_tag,omitempty"`
	Triples   int    `json:"triples"`
	EmittedAt string `json:"emitted_at"`
}

// Supabase mirrors every emitted record into a Postgres table via the
// Supabase REST API — a durable audit trail independent of the chain head
// kept in internal/persist.
//
// Grounded on the teacher's internal/database/supabase.go SupabaseClient:
// same supabase-go client construction from SUPABASE_URL/SUPABASE_SERVICE_KEY
// and the same From(table).Insert(...).Execute() generic-row idiom used by
// its InsertRow helper.
type Supabase struct {
	client *supabase.Client
	table  string
}

// NewSupabaseSink builds a Supabase-backed sink from the standard
// environment configuration.
func NewSupabaseSink(table string) (*Supabase, error) {
	url := os.Getenv("SUPABASE_URL")
	key := os.Getenv("SUPABASE_SERVICE_KEY")
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase sink: SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase sink: new client: %w", err)
	}
	if table == "" {
		table = "emitted_records"
	}
	return &Supabase{client: client, table: table}, nil
}

func (s *Supabase) Write(ctx context.Context, rec Record) error {
	row := supabaseRow{
		TenantID:  rec.TenantID,
		Triples:   len(rec.Triples),
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if rec.Receipt != nil {
		row.ReceiptID = hex.EncodeToString(rec.Receipt.ReceiptID[:])
		row.Parked = rec.Receipt.Parked
		row.ErrorTag = rec.Receipt.ErrorTag
	}
	_, _, err := s.client.From(s.table).Insert(row, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("supabase sink: insert: %w", err)
	}
	return nil
}

func (s *Supabase) Close() error { return nil }
