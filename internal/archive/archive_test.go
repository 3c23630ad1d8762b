package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/HueCodes/shipagent/internal/ledger"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRecordAndList(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	lines := []ledger.Message{
		{Role: ledger.RoleUser, Content: "rates to Chicago", Timestamp: base},
		{Role: ledger.RoleAssistant, Content: "Here are the rates.", Timestamp: base.Add(time.Second)},
	}
	for _, msg := range lines {
		if err := a.Record(ctx, "session_a", msg); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := a.List(ctx, "session_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Role != ledger.RoleUser || entries[0].Content != "rates to Chicago" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if !entries[1].SentAt.Equal(base.Add(time.Second)) {
		t.Fatalf("timestamp not preserved: %v", entries[1].SentAt)
	}
}

func TestListUnknownSessionIsEmpty(t *testing.T) {
	a := openTestArchive(t)

	entries, err := a.List(context.Background(), "nope")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestSessionsNewestActivityFirst(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	now := time.Now()

	a.Record(ctx, "session_old", ledger.Message{Role: ledger.RoleUser, Content: "a", Timestamp: now})
	a.Record(ctx, "session_new", ledger.Message{Role: ledger.RoleUser, Content: "b", Timestamp: now})
	a.Record(ctx, "session_old", ledger.Message{Role: ledger.RoleUser, Content: "c", Timestamp: now})

	ids, err := a.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(ids) != 2 || ids[0] != "session_old" || ids[1] != "session_new" {
		t.Fatalf("unexpected order %v", ids)
	}
}
