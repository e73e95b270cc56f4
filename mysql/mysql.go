package mysql

import (
	"context"
	"database/sql"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cinegraph/common/structures/query"
)

type SetupOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Pool hands out one dedicated connection per request.
type Pool struct {
	db *sql.DB
}

func Setup(ctx context.Context, opt SetupOptions) (*Pool, error) {
	cfg, err := mysqldriver.ParseDSN(opt.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true

	connector, err := mysqldriver.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create mysql connector")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(opt.MaxOpenConns)
	db.SetMaxIdleConns(opt.MaxIdleConns)
	db.SetConnMaxLifetime(opt.ConnMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}

	zap.S().Infow("mysql, connected", "addr", cfg.Addr, "database", cfg.DBName)

	return New(db), nil
}

func New(db *sql.DB) *Pool {
	return &Pool{db: db}
}

// Open acquires a connection owned by the caller until the returned store is closed.
func (p *Pool) Open(ctx context.Context) (query.Store, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire mysql connection")
	}

	return newSession(conn), nil
}

func (p *Pool) Close() error {
	return p.db.Close()
}
