// Package sqlite persists rooms and the space graph in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Store implements core.RoomStore.
type Store struct {
	sqlDB *sql.DB
}

var _ core.RoomStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("module", "store.sqlite").Str("path", path).Msg("opened")
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) PutRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" {
		return fmt.Errorf("room id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rooms (id, name, kind, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   kind = excluded.kind`,
		string(room.ID),
		string(room.Name),
		room.Kind.String(),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put room: %w", err)
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM space_children WHERE parent_id = ? OR child_id = ?`, string(id), string(id)); err != nil {
			return fmt.Errorf("delete edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, string(id)); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
}

// PutEdge upserts an edge; a canonical edge demotes the child's other edges.
func (s *Store) PutEdge(ctx context.Context, edge core.SpaceEdge) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if edge.Canonical {
			if _, err := tx.ExecContext(ctx,
				`UPDATE space_children SET canonical = 0 WHERE child_id = ? AND parent_id <> ?`,
				string(edge.Child), string(edge.Parent),
			); err != nil {
				return fmt.Errorf("demote canonical: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO space_children (parent_id, child_id, canonical)
			 VALUES (?, ?, ?)
			 ON CONFLICT(parent_id, child_id) DO UPDATE SET
			   canonical = CASE WHEN excluded.canonical = 1 THEN 1 ELSE space_children.canonical END`,
			string(edge.Parent), string(edge.Child), boolToInt(edge.Canonical),
		)
		if err != nil {
			return fmt.Errorf("put edge: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteEdge(ctx context.Context, parent, child domain.RoomID) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM space_children WHERE parent_id = ? AND child_id = ?`,
		string(parent), string(child),
	); err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]domain.Room, []core.SpaceEdge, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, kind FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query rooms: %w", err)
	}
	var rooms []domain.Room
	for rows.Next() {
		var id, name, kind string
		if err := rows.Scan(&id, &name, &kind); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("scan room: %w", err)
		}
		r := domain.Room{ID: domain.RoomID(id), Name: domain.RoomName(name)}
		if err := r.Kind.UnmarshalText([]byte(kind)); err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("room %s: %w", id, err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rooms: %w", err)
	}

	rows, err = s.sqlDB.QueryContext(ctx, `SELECT parent_id, child_id, canonical FROM space_children ORDER BY parent_id, child_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var edges []core.SpaceEdge
	for rows.Next() {
		var parent, child string
		var canonical int
		if err := rows.Scan(&parent, &child, &canonical); err != nil {
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, core.SpaceEdge{
			Parent:    domain.RoomID(parent),
			Child:     domain.RoomID(child),
			Canonical: canonical == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate edges: %w", err)
	}
	return rooms, edges, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
