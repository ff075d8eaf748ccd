package store

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying "<collection>/<id>".
const NotifyChannel = "showtime_documents"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`
	replaceSQL = `INSERT INTO documents (collection, id, fields, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`
	mergeSQL = `INSERT INTO documents (collection, id, fields, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = now()`
	deleteSQL    = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	selectAllSQL = `SELECT id, fields FROM documents WHERE collection = $1 ORDER BY id`
	selectOneSQL = `SELECT fields FROM documents WHERE collection = $1 AND id = $2`
	notifySQL    = `SELECT pg_notify($1, $2)`
	listenSQL    = `LISTEN ` + NotifyChannel
	unlistenSQL  = `UNLISTEN *`
)

// dbtx is the query surface shared by *pgxpool.Pool and pgxmock.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// listener is a dedicated connection receiving notifications.
type listener interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// PostgresStore keeps documents in a single jsonb table and announces
// changes through NOTIFY.
type PostgresStore struct {
	db     dbtx
	listen func(ctx context.Context) (listener, error)
	close  func()
}

var _ Gateway = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the documents table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}

	s := &PostgresStore{
		db:     pool,
		listen: poolListener(pool),
		close:  pool.Close,
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresStore(db dbtx, listen func(ctx context.Context) (listener, error)) *PostgresStore {
	return &PostgresStore{db: db, listen: listen, close: func() {}}
}

// Migrate creates the documents table when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return errors.Wrap(err, "failed to create documents table")
	}
	return nil
}

// WriteDocument implements Gateway.
func (p *PostgresStore) WriteDocument(ctx context.Context, collection, id string, fields map[string]any, mergeFields bool) error {
	data, err := marshalFields(fields)
	if err != nil {
		return err
	}
	query := replaceSQL
	if mergeFields {
		query = mergeSQL
	}
	if _, err := p.db.Exec(ctx, query, collection, id, string(data)); err != nil {
		return errors.Wrapf(err, "failed to write %s/%s", collection, id)
	}
	return p.notify(ctx, collection, id)
}

// DeleteDocument implements Gateway.
func (p *PostgresStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := p.db.Exec(ctx, deleteSQL, collection, id); err != nil {
		return errors.Wrapf(err, "failed to delete %s/%s", collection, id)
	}
	return p.notify(ctx, collection, id)
}

// GetCollection implements Gateway.
func (p *PostgresStore) GetCollection(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.db.Query(ctx, selectAllSQL, collection)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", collection)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", collection)
		}
		fields, err := unmarshalFields(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", collection)
	}
	return docs, nil
}

// GetDocument implements Gateway.
func (p *PostgresStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := p.db.QueryRow(ctx, selectOneSQL, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, errors.Wrapf(err, "failed to read %s/%s", collection, id)
	}
	fields, err := unmarshalFields(data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

// SubscribeCollection implements Gateway.
func (p *PostgresStore) SubscribeCollection(ctx context.Context, collection string) (*Subscription[[]Document], error) {
	f := newFeed[[]Document]()
	load := func(ctx context.Context) error {
		docs, err := p.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		f.push(docs)
		return nil
	}
	accept := func(c, _ string) bool { return c == collection }
	stop, err := p.follow(ctx, accept, load, f.close)
	if err != nil {
		return nil, err
	}
	return &Subscription[[]Document]{C: f.ch, stop: stop}, nil
}

// SubscribeDocument implements Gateway.
func (p *PostgresStore) SubscribeDocument(ctx context.Context, collection, id string, defaults map[string]any) (*Subscription[Document], error) {
	f := newFeed[Document]()
	defaults = cloneFields(defaults)
	load := func(ctx context.Context) error {
		doc, err := p.GetDocument(ctx, collection, id)
		if errors.Is(err, ErrNotFound) {
			fields := cloneFields(defaults)
			if fields == nil {
				fields = map[string]any{}
			}
			doc, err = Document{ID: id, Fields: fields}, nil
		}
		if err != nil {
			return err
		}
		f.push(doc)
		return nil
	}
	accept := func(c, changed string) bool { return c == collection && changed == id }
	stop, err := p.follow(ctx, accept, load, f.close)
	if err != nil {
		return nil, err
	}
	return &Subscription[Document]{C: f.ch, stop: stop}, nil
}

func (p *PostgresStore) follow(
	ctx context.Context,
	accept func(collection, id string) bool,
	load func(ctx context.Context) error,
	done func(),
) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	l, err := p.listen(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := load(ctx); err != nil {
		cancel()
		l.Release()
		return nil, err
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer done()
		defer l.Release()

		for {
			n, err := l.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					zlog.Error().Err(err).Msg("Lost postgres notification connection")
				}
				return
			}
			collection, id, _ := strings.Cut(n.Payload, "/")
			if !accept(collection, id) {
				continue
			}
			if err := load(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				zlog.Error().Err(err).Msgf("Failed to reload %s", collection)
			}
		}
	}()

	return func() {
		cancel()
		<-finished
	}, nil
}

func (p *PostgresStore) notify(ctx context.Context, collection, id string) error {
	if _, err := p.db.Exec(ctx, notifySQL, NotifyChannel, collection+"/"+id); err != nil {
		return errors.Wrapf(err, "failed to announce change of %s/%s", collection, id)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.close()
	return nil
}

type poolConn struct {
	conn *pgxpool.Conn
}

func (c *poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.conn.Conn().WaitForNotification(ctx)
}

func (c *poolConn) Release() {
	// the connection returns to the pool, so stop listening first
	_, _ = c.conn.Exec(context.Background(), unlistenSQL)
	c.conn.Release()
}

func poolListener(pool *pgxpool.Pool) func(ctx context.Context) (listener, error) {
	return func(ctx context.Context) (listener, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to acquire listen connection")
		}
		if _, err := conn.Exec(ctx, listenSQL); err != nil {
			conn.Release()
			return nil, errors.Wrap(err, "failed to listen for changes")
		}
		return &poolConn{conn: conn}, nil
	}
}
