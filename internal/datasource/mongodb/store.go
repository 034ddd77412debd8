// Package mongodb serves collections from MongoDB. Subscriptions use change
// streams and fall back to polling where the server has none.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/j-veylop/opsdash-tui/internal/datasource"
	"github.com/j-veylop/opsdash-tui/internal/logger"
)

// Options configures a connection.
type Options struct {
	URI          string
	Database     string
	PollInterval time.Duration
}

// Store is a MongoDB-backed DataSource.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	pollInterval time.Duration
	closeOnce    sync.Once
}

var (
	_ datasource.DataSource = (*Store)(nil)
	_ datasource.Writer     = (*Store)(nil)
)

// Connect dials the server and checks it answers.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, errors.New("database connection URL is empty")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is empty")
	}

	clientOptions := options.Client().ApplyURI(opts.URI).
		SetMaxPoolSize(10).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", opts.Database)
	return &Store{
		client:       client,
		db:           client.Database(opts.Database),
		pollInterval: opts.PollInterval,
	}, nil
}

// Snapshot implements datasource.DataSource.
func (s *Store) Snapshot(ctx context.Context, c datasource.Collection, f datasource.Filter) ([]datasource.Record, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}

	cur, err := s.db.Collection(string(c)).Find(ctx, filterDoc(f))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}

	records := make([]datasource.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromDoc(doc))
	}
	return records, nil
}

// Subscribe implements datasource.DataSource. Every change event triggers a
// fresh snapshot, so deliveries always carry the full matching set.
func (s *Store) Subscribe(
	ctx context.Context, c datasource.Collection, f datasource.Filter, fn datasource.ChangeFunc,
) (datasource.Unsubscribe, error) {
	if err := datasource.Validate(c); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) ([]datasource.Record, error) {
		return s.Snapshot(ctx, c, f)
	}

	// Open the stream before the initial read so no change falls between them.
	stream, err := s.db.Collection(string(c)).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		logger.Info("change streams unavailable, polling", "collection", c, "error", err)
		return datasource.Poll(ctx, s.pollInterval, fetch, fn), nil
	}

	initial, err := fetch(ctx)
	if err != nil {
		_ = stream.Close(context.Background())
		return nil, err
	}
	fn(initial, nil)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = stream.Close(context.Background()) }()

		for stream.Next(ctx) {
			// Coalesce a burst of events into one read.
			for stream.RemainingBatchLength() > 0 {
				if !stream.Next(ctx) {
					break
				}
			}
			records, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			fn(records, err)
		}
		if ctx.Err() != nil {
			return
		}

		err := stream.Err()
		if err == nil {
			err = errors.New("change stream closed")
		}
		logger.Warn("change stream failed, polling", "collection", c, "error", err)
		fn(nil, fmt.Errorf("watch %s: %w", c, err))

		stop := datasource.Poll(ctx, s.pollInterval, fetch, fn)
		<-ctx.Done()
		stop()
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// Replace implements datasource.Writer.
func (s *Store) Replace(ctx context.Context, c datasource.Collection, records []datasource.Record) error {
	if err := datasource.Validate(c); err != nil {
		return err
	}

	coll := s.db.Collection(string(c))
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, 0, len(records))
	for _, r := range records {
		docs = append(docs, docFromRecord(r))
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert %s: %w", c, err)
	}
	return nil
}

// Close implements datasource.DataSource.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = s.client.Disconnect(ctx); err != nil {
			logger.Error("failed to disconnect MongoDB client", "error", err)
		}
	})
	return err
}

// filterDoc renders equality conditions in a stable key order.
func filterDoc(f datasource.Filter) bson.D {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	doc := bson.D{}
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: f[k]})
	}
	return doc
}

// recordFromDoc converts BSON-specific values to the plain shapes the
// decoders understand: ObjectIDs become hex strings, dates become time.Time
// and Decimal128 becomes decimal.Decimal.
func recordFromDoc(doc bson.M) datasource.Record {
	r := make(datasource.Record, len(doc))
	for k, v := range doc {
		r[k] = plainValue(v)
	}
	return r
}

func plainValue(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Decimal128:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil
		}
		return d
	case bson.M:
		return map[string]any(recordFromDoc(x))
	case bson.D:
		return map[string]any(recordFromDoc(x.Map()))
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

// docFromRecord prepares a record for insertion. An "id" field is kept and
// MongoDB assigns _id.
func docFromRecord(r datasource.Record) bson.M {
	doc := make(bson.M, len(r))
	for k, v := range r {
		if d, ok := v.(decimal.Decimal); ok {
			dec, err := primitive.ParseDecimal128(d.String())
			if err == nil {
				v = dec
			}
		}
		doc[k] = v
	}
	return doc
}
