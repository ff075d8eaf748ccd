package store

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

const maxMergeAttempts = 5

// RedisStore keeps each document as a JSON string and announces changes on
// a per-collection pub/sub channel carrying the changed document id.
//
// Keys:
//
//	<prefix>:doc:<collection>:<id>   document fields (JSON)
//	<prefix>:idx:<collection>        set of document ids
//	<prefix>:changes:<collection>    change channel
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

var _ Gateway = (*RedisStore)(nil)

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return NewRedisStoreWithClient(rdb, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "showtime"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) docKey(collection, id string) string {
	return strings.Join([]string{r.prefix, "doc", collection, id}, ":")
}

func (r *RedisStore) idxKey(collection string) string {
	return strings.Join([]string{r.prefix, "idx", collection}, ":")
}

func (r *RedisStore) changesKey(collection string) string {
	return strings.Join([]string{r.prefix, "changes", collection}, ":")
}

// WriteDocument implements Gateway.
func (r *RedisStore) WriteDocument(ctx context.Context, collection, id string, fields map[string]any, mergeFields bool) error {
	key := r.docKey(collection, id)
	idx := r.idxKey(collection)

	if !mergeFields {
		data, err := marshalFields(fields)
		if err != nil {
			return err
		}
		if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, idx, id)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "failed to write %s/%s", collection, id)
		}
		return r.publish(ctx, collection, id)
	}

	update := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		base, err := unmarshalFields(cur)
		if err != nil {
			return err
		}
		data, err := marshalFields(merge(base, fields))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, idx, id)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err = r.rdb.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		zlog.Debug().Msgf("Merge of %s/%s raced, retrying (attempt %d)", collection, id, attempt+1)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to merge %s/%s", collection, id)
	}
	return r.publish(ctx, collection, id)
}

// DeleteDocument implements Gateway.
func (r *RedisStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.docKey(collection, id))
		pipe.SRem(ctx, r.idxKey(collection), id)
		return nil
	}); err != nil {
		return errors.Wrapf(err, "failed to delete %s/%s", collection, id)
	}
	return r.publish(ctx, collection, id)
}

// GetCollection implements Gateway.
func (r *RedisStore) GetCollection(ctx context.Context, collection string) ([]Document, error) {
	ids, err := r.rdb.SMembers(ctx, r.idxKey(collection)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", collection)
	}
	if len(ids) == 0 {
		return []Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(collection, id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", collection)
	}

	docs := make([]Document, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		fields, err := unmarshalFields([]byte(raw))
		if err != nil {
			zlog.Warn().Err(err).Msgf("Skipping unreadable document %s/%s", collection, ids[i])
			continue
		}
		docs = append(docs, Document{ID: ids[i], Fields: fields})
	}
	sortDocuments(docs)
	return docs, nil
}

// GetDocument implements Gateway.
func (r *RedisStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	data, err := r.rdb.Get(ctx, r.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
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
func (r *RedisStore) SubscribeCollection(ctx context.Context, collection string) (*Subscription[[]Document], error) {
	f := newFeed[[]Document]()
	load := func(ctx context.Context) error {
		docs, err := r.GetCollection(ctx, collection)
		if err != nil {
			return err
		}
		f.push(docs)
		return nil
	}
	stop, err := r.follow(ctx, collection, func(string) bool { return true }, load, f.close)
	if err != nil {
		return nil, err
	}
	return &Subscription[[]Document]{C: f.ch, stop: stop}, nil
}

// SubscribeDocument implements Gateway.
func (r *RedisStore) SubscribeDocument(ctx context.Context, collection, id string, defaults map[string]any) (*Subscription[Document], error) {
	f := newFeed[Document]()
	defaults = cloneFields(defaults)
	load := func(ctx context.Context) error {
		doc, err := r.GetDocument(ctx, collection, id)
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
	accept := func(changed string) bool { return changed == id }
	stop, err := r.follow(ctx, collection, accept, load, f.close)
	if err != nil {
		return nil, err
	}
	return &Subscription[Document]{C: f.ch, stop: stop}, nil
}

// follow subscribes to the change channel, loads the initial snapshot, then
// reloads on every accepted change until stopped.
func (r *RedisStore) follow(
	ctx context.Context,
	collection string,
	accept func(id string) bool,
	load func(ctx context.Context) error,
	done func(),
) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ps := r.rdb.Subscribe(ctx, r.changesKey(collection))
	// wait for the subscription to be active so no change slips past the initial load
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, errors.Wrapf(err, "failed to subscribe to %s", collection)
	}
	if err := load(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, err
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer done()
		defer ps.Close()

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if !accept(msg.Payload) {
					continue
				}
				if err := load(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					zlog.Error().Err(err).Msgf("Failed to reload %s", collection)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-finished
	}, nil
}

func (r *RedisStore) publish(ctx context.Context, collection, id string) error {
	if err := r.rdb.Publish(ctx, r.changesKey(collection), id).Err(); err != nil {
		return errors.Wrapf(err, "failed to announce change of %s/%s", collection, id)
	}
	return nil
}

// Close releases the client. Open subscriptions end with it.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
