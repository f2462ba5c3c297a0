// Package archive persists tickets and learned QA pairs to Postgres.
// Everything here is best-effort bookkeeping: the coordinator logs
// archive failures and moves on.
package archive

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
)

type Config struct {
	DSN          string        `envconfig:"DSN"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"5s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" default:"4"`
}

// Enabled reports whether an archive was configured at all. An empty
// DSN means the deployment runs without persistence.
func (c Config) Enabled() bool {
	return c.DSN != ""
}

type TicketRow struct {
	bun.BaseModel `bun:"table:support_tickets"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Question  string    `bun:"question,notnull"`
	TicketRef string    `bun:"ticket_ref"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type QARow struct {
	bun.BaseModel `bun:"table:learned_answers"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Question  string    `bun:"question,notnull"`
	Answer    string    `bun:"answer,notnull"`
	Source    string    `bun:"source,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type Archive struct {
	db      *bun.DB
	timeout time.Duration
}

func New(cfg Config) *Archive {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	return &Archive{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: cfg.Timeout,
	}
}

// Init creates the tables when they do not exist yet. Called once at
// startup.
func (a *Archive) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	for _, model := range []any{(*TicketRow)(nil), (*QARow)(nil)} {
		if _, err := a.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) SaveTicket(ctx context.Context, pending contractx.PendingQuery) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row := &TicketRow{
		UserID:    pending.UserID,
		Question:  pending.Question,
		TicketRef: pending.TicketRef,
		CreatedAt: pending.CreatedAt,
	}
	_, err := a.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (a *Archive) SaveQA(ctx context.Context, rec contractx.QARecord) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row := &QARow{
		Question:  rec.Question,
		Answer:    rec.Answer,
		Source:    rec.Source,
		CreatedAt: rec.CreatedAt,
	}
	_, err := a.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (a *Archive) Close() error {
	return a.db.Close()
}
