// Package querytest provides an in memory query.Store recording every round trip.
// A Store can also hand out sessions over its data, one per request, the way the
// database backed stores do.
package querytest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cinegraph/common/structures"
)

// Call is one round trip made against the store.
type Call struct {
	Table string
	IDs   []int32
}

type Store struct {
	mu sync.Mutex

	UserRows           map[int32]structures.User
	MovieRows          map[int32]structures.Movie
	CharacterRows      map[int32]structures.Character
	MovieCharacterRows []structures.MovieCharacter

	// Err, when set, is returned by every query against the named table.
	Err map[string]error

	calls    []Call
	closed   bool
	opened   int
	released int
}

func New() *Store {
	return &Store{
		UserRows:      map[int32]structures.User{},
		MovieRows:     map[int32]structures.Movie{},
		CharacterRows: map[int32]structures.Character{},
		Err:           map[string]error{},
	}
}

// Fixture returns a store holding a small cast: movie 7 has characters 11 and 12,
// movie 9 has character 11, movie 8 has none.
func Fixture() *Store {
	s := New()
	s.UserRows[1] = structures.User{ID: 1, Email: "ada@example.com"}
	s.UserRows[2] = structures.User{ID: 2, Email: "grace@example.com"}
	s.UserRows[3] = structures.User{ID: 3, Email: "gone@example.com", Deleted: true}
	s.MovieRows[7] = structures.Movie{ID: 7, Title: "Heat"}
	s.MovieRows[8] = structures.Movie{ID: 8, Title: "Ronin"}
	s.MovieRows[9] = structures.Movie{ID: 9, Title: "Collateral"}
	s.CharacterRows[11] = structures.Character{ID: 11, Name: "Neil"}
	s.CharacterRows[12] = structures.Character{ID: 12, Name: "Vincent"}
	s.MovieCharacterRows = []structures.MovieCharacter{
		{MovieID: 7, CharacterID: 11},
		{MovieID: 7, CharacterID: 12},
		{MovieID: 9, CharacterID: 11},
	}

	return s
}

func (s *Store) record(table string, ids []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("querytest: store is closed")
	}
	s.calls = append(s.calls, Call{Table: table, IDs: append([]int32(nil), ids...)})
	return s.Err[table]
}

// Calls returns the round trips made so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

// CallsTo returns the round trips made against one table.
func (s *Store) CallsTo(table string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Table == table {
			out = append(out, c)
		}
	}

	return out
}

// Closed reports whether the store was closed or every session opened on it was.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed || (s.opened > 0 && s.opened == s.released)
}

// Open starts a session over the store's data. Closing the session leaves the
// store usable by later sessions.
func (s *Store) Open(context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("querytest: store is closed")
	}
	s.opened++
	return &Session{store: s}, nil
}

type Session struct {
	store *Store

	mu     sync.Mutex
	closed bool
}

func (ss *Session) check() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return fmt.Errorf("querytest: session is closed")
	}
	return nil
}

func (ss *Session) Users(ctx context.Context, ids []int32) ([]structures.User, error) {
	if err := ss.check(); err != nil {
		return nil, err
	}
	return ss.store.Users(ctx, ids)
}

func (ss *Session) Movies(ctx context.Context, ids []int32) ([]structures.Movie, error) {
	if err := ss.check(); err != nil {
		return nil, err
	}
	return ss.store.Movies(ctx, ids)
}

func (ss *Session) Characters(ctx context.Context, ids []int32) ([]structures.Character, error) {
	if err := ss.check(); err != nil {
		return nil, err
	}
	return ss.store.Characters(ctx, ids)
}

func (ss *Session) MovieCharacters(ctx context.Context, by structures.MovieCharacterColumn, ids []int32) ([]structures.MovieCharacter, error) {
	if err := ss.check(); err != nil {
		return nil, err
	}
	return ss.store.MovieCharacters(ctx, by, ids)
}

func (ss *Session) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return nil
	}
	ss.closed = true

	ss.store.mu.Lock()
	ss.store.released++
	ss.store.mu.Unlock()
	return nil
}

func (s *Store) Users(_ context.Context, ids []int32) ([]structures.User, error) {
	if err := s.record("users", ids); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return pick(s.UserRows, ids), nil
}

func (s *Store) Movies(_ context.Context, ids []int32) ([]structures.Movie, error) {
	if err := s.record("movies", ids); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return pick(s.MovieRows, ids), nil
}

func (s *Store) Characters(_ context.Context, ids []int32) ([]structures.Character, error) {
	if err := s.record("characters", ids); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return pick(s.CharacterRows, ids), nil
}

func (s *Store) MovieCharacters(_ context.Context, by structures.MovieCharacterColumn, ids []int32) ([]structures.MovieCharacter, error) {
	if err := s.record("movie_characters."+string(by), ids); err != nil {
		return nil, err
	}

	want := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []structures.MovieCharacter
	for _, row := range s.MovieCharacterRows {
		if _, ok := want[by.Parent(row)]; ok {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return by.Child(out[i]) < by.Child(out[j]) })

	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func pick[V any](table map[int32]V, ids []int32) []V {
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		if v, ok := table[id]; ok {
			out = append(out, v)
		}
	}

	return out
}
