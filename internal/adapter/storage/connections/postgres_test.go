package connectionstorage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/burenotti/go_coach_backend/internal/adapter/storage"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
)

const validID = "5f1c3c1e-8a43-4d8e-9d6e-0b4c2a7e9f10"

// countingDB fails every statement and counts how many reached it.
type countingDB struct {
	queries int
}

func (db *countingDB) Begin(context.Context) (storage.DBContext, error) { return db, nil }
func (db *countingDB) Commit() error                                    { return nil }
func (db *countingDB) Rollback() error                                  { return nil }

func (db *countingDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	db.queries++
	return nil, errors.New("unexpected exec")
}

func (db *countingDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	db.queries++
	return nil, errors.New("unexpected query")
}

func (db *countingDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	db.queries++
	return nil
}

func TestMalformedIDsMatchNothing(t *testing.T) {
	db := &countingDB{}
	s := NewPostgresStorage(db)
	ctx := context.Background()

	if _, err := s.GetByID(ctx, "abc"); !errors.Is(err, connection.ErrConnectionNotFound) {
		t.Fatalf("GetByID: expected ErrConnectionNotFound, got %v", err)
	}
	if c, err := s.FindActive(ctx, validID, "abc"); c != nil || err != nil {
		t.Fatalf("FindActive: expected no connection, got %v %v", c, err)
	}
	if l, err := s.List(ctx, "abc", connection.RoleClient); len(l) != 0 || err != nil {
		t.Fatalf("List: expected nothing, got %v %v", l, err)
	}
	if p, err := s.ListAcceptedClients(ctx, "abc"); len(p) != 0 || err != nil {
		t.Fatalf("ListAcceptedClients: expected nothing, got %v %v", p, err)
	}
	if db.queries != 0 {
		t.Fatalf("malformed ids must not reach the database, got %d statements", db.queries)
	}

	if _, err := s.GetByID(ctx, validID); errors.Is(err, connection.ErrConnectionNotFound) || err == nil {
		t.Fatalf("well-formed id must be queried, got %v", err)
	}
	if db.queries != 1 {
		t.Fatalf("expected one statement for a well-formed id, got %d", db.queries)
	}
}
