package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/cinegraph/common/structures"
)

var (
	userColumns      = []string{"id", "uuid", "hash", "salt", "email", "created_at", "updated_at", "deleted"}
	movieColumns     = []string{"id", "title", "released_at", "created_at", "updated_at"}
	characterColumns = []string{"id", "name", "created_at", "updated_at"}
)

// Session runs the batch queries of one request on a single connection.
// A connection cannot interleave statements, so queries are serialized.
type Session struct {
	mu    sync.Mutex
	conn  *sql.Conn
	stmts *cache.Cache // query text -> *sql.Stmt
}

func newSession(conn *sql.Conn) *Session {
	return &Session{
		conn:  conn,
		stmts: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Session) Users(ctx context.Context, ids []int32) ([]structures.User, error) {
	result := make([]structures.User, 0, len(ids))
	err := s.query(ctx, selectIn("users", userColumns, "id", len(ids), ""), ids, func(rows *sql.Rows) error {
		u := structures.User{}
		salt := sql.NullString{}
		if err := rows.Scan(&u.ID, &u.UUID, &u.Hash, &salt, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.Deleted); err != nil {
			return err
		}
		u.Salt = salt.String

		result = append(result, u)
		return nil
	})

	return result, errors.Wrap(err, "query users")
}

func (s *Session) Movies(ctx context.Context, ids []int32) ([]structures.Movie, error) {
	result := make([]structures.Movie, 0, len(ids))
	err := s.query(ctx, selectIn("movies", movieColumns, "id", len(ids), ""), ids, func(rows *sql.Rows) error {
		m := structures.Movie{}
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleasedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
		}

		result = append(result, m)
		return nil
	})

	return result, errors.Wrap(err, "query movies")
}

func (s *Session) Characters(ctx context.Context, ids []int32) ([]structures.Character, error) {
	result := make([]structures.Character, 0, len(ids))
	err := s.query(ctx, selectIn("characters", characterColumns, "id", len(ids), ""), ids, func(rows *sql.Rows) error {
		c := structures.Character{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}

		result = append(result, c)
		return nil
	})

	return result, errors.Wrap(err, "query characters")
}

func (s *Session) MovieCharacters(ctx context.Context, by structures.MovieCharacterColumn, ids []int32) ([]structures.MovieCharacter, error) {
	orderBy := structures.MovieCharacterColumnCharacterID
	if by == structures.MovieCharacterColumnCharacterID {
		orderBy = structures.MovieCharacterColumnMovieID
	}

	q := selectIn("movie_characters", []string{"movie_id", "character_id"}, string(by), len(ids), string(orderBy))

	var result []structures.MovieCharacter
	err := s.query(ctx, q, ids, func(rows *sql.Rows) error {
		mc := structures.MovieCharacter{}
		if err := rows.Scan(&mc.MovieID, &mc.CharacterID); err != nil {
			return err
		}

		result = append(result, mc)
		return nil
	})

	return result, errors.Wrapf(err, "query movie_characters by %s", by)
}

// Close releases every prepared statement and returns the connection to the pool.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	for q, item := range s.stmts.Items() {
		if err := item.Object.(*sql.Stmt).Close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "close statement %q", q))
		}
	}
	s.stmts.Flush()

	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		result = multierror.Append(result, errors.Wrap(err, "release connection"))
	}

	return result.ErrorOrNil()
}

func (s *Session) query(ctx context.Context, q string, ids []int32, scan func(*sql.Rows) error) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.prepare(ctx, q)
	if err != nil {
		return err
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}

	return rows.Err()
}

// prepare returns the statement for q, preparing it on first use. s.mu must be held.
func (s *Session) prepare(ctx context.Context, q string) (*sql.Stmt, error) {
	if v, ok := s.stmts.Get(q); ok {
		return v.(*sql.Stmt), nil
	}

	stmt, err := s.conn.PrepareContext(ctx, q)
	if err != nil {
		return nil, err
	}
	s.stmts.Set(q, stmt, cache.NoExpiration)

	return stmt, nil
}

func selectIn(table string, columns []string, column string, n int, orderBy string) string {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(columns, ", "), table, column, placeholders(n))
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}

	return q
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}

	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
