package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/infra/sqlite"
	"github.com/dvloznov/personal-finance/internal/jobs"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

type mockSource struct {
	txs    []*domain.Transaction
	filter domain.TransactionFilter
}

func (m *mockSource) List(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	m.filter = f
	var out []*domain.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type mockExporter struct {
	userID string
	rows   int
	err    error
}

func (m *mockExporter) Export(ctx context.Context, userID string, txs []*domain.Transaction) (int, error) {
	m.userID, m.rows = userID, len(txs)
	return len(txs), m.err
}

type emptyNotion struct{ created int }

func (n *emptyNotion) CreatePage(ctx context.Context, db string, p notionapi.Properties) (*notionapi.Page, error) {
	n.created++
	return &notionapi.Page{ID: "p"}, nil
}
func (n *emptyNotion) UpdatePage(ctx context.Context, id string, p notionapi.Properties) (*notionapi.Page, error) {
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}
func (n *emptyNotion) QueryDatabase(ctx context.Context, db string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{}, nil
}
func (n *emptyNotion) ArchivePage(ctx context.Context, id string) error { return nil }

func source() *mockSource {
	return &mockSource{txs: []*domain.Transaction{
		{ID: "a", UserID: "u1"},
		{ID: "b", UserID: "u1"},
		{ID: "c", UserID: "u2"},
	}}
}

func TestExportBigQuery(t *testing.T) {
	src := source()
	exp := &mockExporter{}
	router := NewRouter(Deps{Transactions: src, Exporter: exp})

	got, err := router.Handle(context.Background(), &jobs.Job{
		UserID: "u1", Kind: jobs.KindExportBigQuery, Params: map[string]string{"from": "2024-01-01"},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got != "exported 2 transactions" || exp.userID != "u1" || exp.rows != 2 {
		t.Errorf("result %q, exporter %+v", got, exp)
	}
	if src.filter.From.String() != "2024-01-01" {
		t.Errorf("filter not passed: %+v", src.filter)
	}

	_, err = router.Handle(context.Background(), &jobs.Job{
		UserID: "u1", Kind: jobs.KindExportBigQuery, Params: map[string]string{"to": "31/01/2024"},
	})
	if !jobs.IsPermanent(err) {
		t.Errorf("bad date param should fail permanently, got %v", err)
	}

	exp.err = errors.New("quota exceeded")
	_, err = router.Handle(context.Background(), &jobs.Job{UserID: "u1", Kind: jobs.KindExportBigQuery})
	if err == nil || jobs.IsPermanent(err) {
		t.Errorf("export failure should be retryable, got %v", err)
	}
}

func TestUnconfiguredKindsFailPermanently(t *testing.T) {
	router := NewRouter(Deps{Transactions: source()})

	for _, kind := range []jobs.Kind{jobs.KindExportBigQuery, jobs.KindSyncNotion, jobs.KindBackupGCS} {
		if _, err := router.Handle(context.Background(), &jobs.Job{UserID: "u1", Kind: kind}); !jobs.IsPermanent(err) {
			t.Errorf("%s: expected permanent error, got %v", kind, err)
		}
	}
}

func TestSyncNotion(t *testing.T) {
	notion := &emptyNotion{}
	router := NewRouter(Deps{Transactions: source(), Notion: notion, NotionDBID: "db"})

	got, err := router.Handle(context.Background(), &jobs.Job{UserID: "u2", Kind: jobs.KindSyncNotion})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if notion.created != 1 || !strings.HasPrefix(got, "created=1 ") {
		t.Errorf("result %q after %d creates", got, notion.created)
	}

	got, err = router.Handle(context.Background(), &jobs.Job{
		UserID: "u1", Kind: jobs.KindSyncNotion, Params: map[string]string{"dry_run": "true"},
	})
	if err != nil || notion.created != 1 || !strings.HasPrefix(got, "created=2 ") {
		t.Errorf("dry run: %q, %v, %d creates", got, err, notion.created)
	}

	_, err = router.Handle(context.Background(), &jobs.Job{
		UserID: "u1", Kind: jobs.KindSyncNotion, Params: map[string]string{"dry_run": "maybe"},
	})
	if !jobs.IsPermanent(err) {
		t.Errorf("bad dry_run should fail permanently, got %v", err)
	}
}

func TestBackupGCS(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "finance.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sqlite.Close(db)

	dir := t.TempDir()
	router := NewRouter(Deps{DB: db, BackupDir: dir})
	got, err := router.Handle(ctx, &jobs.Job{UserID: "u1", Kind: jobs.KindBackupGCS})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.HasPrefix(got, "snapshot "+dir) {
		t.Errorf("result %q", got)
	}
}
