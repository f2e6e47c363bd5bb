package layout

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type storedRow struct {
	id      pgtype.UUID
	doc     []byte
	updated time.Time
}

// fakeDB implements DBTX over an in-memory table keyed by name.
type fakeDB struct {
	rows    map[string]storedRow
	execs   []string
	failAll error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]storedRow)}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, strings.TrimSpace(sql))
	if db.failAll != nil {
		return pgconn.CommandTag{}, db.failAll
	}
	if strings.Contains(sql, "INSERT INTO credential_layouts") {
		name := args[1].(string)
		row, exists := db.rows[name]
		if !exists {
			row.id = args[0].(pgtype.UUID)
		}
		row.doc = args[2].([]byte)
		row.updated = args[3].(time.Time)
		db.rows[name] = row
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if db.failAll != nil {
		return nil, db.failAll
	}
	names := make([]string, 0, len(db.rows))
	for name := range db.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	return &fakeRows{db: db, names: names, pos: -1}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if db.failAll != nil {
		return fakeRow{err: db.failAll}
	}
	row, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{doc: row.doc}
}

type fakeRow struct {
	doc []byte
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.doc
	return nil
}

type fakeRows struct {
	db    *fakeDB
	names []string
	pos   int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.names)
}

func (r *fakeRows) Scan(dest ...any) error {
	name := r.names[r.pos]
	row := r.db.rows[name]
	*dest[0].(*pgtype.UUID) = row.id
	*dest[1].(*string) = name
	*dest[2].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: row.updated, Valid: true}
	return nil
}

func TestPGStore(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	store := NewPGStore(db, "badges")

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if !strings.HasPrefix(db.execs[0], "CREATE TABLE IF NOT EXISTS credential_layouts") {
		t.Errorf("unexpected schema statement %q", db.execs[0])
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() before save error = %v, want ErrNotFound", err)
	}

	l := Default()
	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	firstID := db.rows["badges"].id

	l.FilenamePattern = "{{id}}.png"
	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if db.rows["badges"].id != firstID {
		t.Error("upsert replaced the row id")
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if err := NewPGStore(db, "visitors").Save(ctx, core.Layout{}); err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "badges" || list[1].Name != "visitors" {
		t.Errorf("List() = %+v", list)
	}
	if list[0].ID == "" || list[0].UpdatedAt.IsZero() {
		t.Errorf("List() entry missing id or timestamp: %+v", list[0])
	}
}

func TestPGStore_Errors(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	db.failAll = errors.New("connection refused")
	store := NewPGStore(db, "badges")

	if err := store.Save(ctx, Default()); err == nil || !strings.Contains(err.Error(), `save layout "badges"`) {
		t.Errorf("Save() error = %v", err)
	}
	if _, err := store.Load(ctx); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want a wrapped driver error", err)
	}
	if _, err := LoadOrDefault(ctx, store); err == nil {
		t.Error("LoadOrDefault() should not hide driver errors")
	}
}
