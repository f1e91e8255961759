package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/storage"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultIndexName = "idx:docs"
	defaultKeyPrefix = "doc:"
	scanBatchSize    = 100

	fieldEmbedding  = "embedding"
	fieldData       = "data"
	fieldType       = "type"
	fieldNormalized = "normalized"
	fieldInsertedAt = "inserted_at"
	fieldDistance   = "vector_score"
)

var (
	// ErrClientRequired indicates a nil Redis client was passed.
	ErrClientRequired = errors.New("redis client is required")
)

// VectorStore implements storage.VectorStore on Redis with RediSearch.
type VectorStore struct {
	client    *goredis.Client
	indexName string
	keyPrefix string
	owned     bool
	logger    *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// Option configures a VectorStore or SnapshotStore.
type Option func(*options) error

type options struct {
	indexName   string
	keyPrefix   string
	snapshotKey string
	owned       bool
	logger      *slog.Logger
}

// WithIndexName sets the RediSearch index name.
func WithIndexName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("index name cannot be empty")
		}
		o.indexName = name
		return nil
	}
}

// WithKeyPrefix sets the hash key prefix for documents.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return errors.New("key prefix cannot be empty")
		}
		o.keyPrefix = prefix
		return nil
	}
}

// WithSnapshotKey sets the key holding the graph snapshot.
func WithSnapshotKey(key string) Option {
	return func(o *options) error {
		if key == "" {
			return errors.New("snapshot key cannot be empty")
		}
		o.snapshotKey = key
		return nil
	}
}

// WithOwnedClient makes Close close the underlying client.
func WithOwnedClient() Option {
	return func(o *options) error {
		o.owned = true
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		indexName:   defaultIndexName,
		keyPrefix:   defaultKeyPrefix,
		snapshotKey: defaultSnapshotKey,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewVectorStore creates a VectorStore over an existing client.
func NewVectorStore(client *goredis.Client, opts ...Option) (storage.VectorStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &VectorStore{
		client:    client,
		indexName: o.indexName,
		keyPrefix: o.keyPrefix,
		owned:     o.owned,
		logger:    o.logger.With("component", "redis-vector-store"),
	}, nil
}

// Close closes the client if the store owns it.
func (s *VectorStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *VectorStore) key(id core.ID) string {
	return s.keyPrefix + string(id)
}

func (s *VectorStore) idFromKey(key string) core.ID {
	return core.ID(strings.TrimPrefix(key, s.keyPrefix))
}

// EnsureIndex creates the HNSW cosine index if it doesn't exist.
func (s *VectorStore) EnsureIndex(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", storage.ErrInvalidQuery, dim)
	}
	err := s.client.FTCreate(ctx, s.indexName,
		&goredis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{s.keyPrefix},
		},
		&goredis.FieldSchema{FieldName: fieldType, FieldType: goredis.SearchFieldTypeTag},
		&goredis.FieldSchema{FieldName: fieldData, FieldType: goredis.SearchFieldTypeText},
		&goredis.FieldSchema{
			FieldName: fieldEmbedding,
			FieldType: goredis.SearchFieldTypeVector,
			VectorArgs: &goredis.FTVectorArgs{
				HNSWOptions: &goredis.FTHNSWOptions{
					Type:            "FLOAT32",
					Dim:             dim,
					DistanceMetric:  "COSINE",
					InitialCapacity: 1000,
				},
			},
		},
	).Err()
	if err != nil && !isIndexExists(err) {
		return fmt.Errorf("%w: create index %s: %w", core.ErrVectorStoreFailure, s.indexName, err)
	}
	if err == nil {
		s.logger.Info("created vector index", "index", s.indexName, "dim", dim)
	}
	return nil
}

func isIndexExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "index already exists")
}

// Upsert writes the document hash.
func (s *VectorStore) Upsert(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	normalized := "0"
	if doc.Normalized {
		normalized = "1"
	}
	err := s.client.HSet(ctx, s.key(doc.Id), map[string]interface{}{
		fieldEmbedding:  encodeVector(doc.Vector),
		fieldData:       doc.Payload,
		fieldType:       doc.Modality.String(),
		fieldNormalized: normalized,
		fieldInsertedAt: strconv.FormatInt(doc.InsertedAt.UnixMicro(), 10),
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrVectorStoreFailure, err)
	}
	return nil
}

// Exists reports whether the document hash exists.
func (s *VectorStore) Exists(ctx context.Context, id core.ID) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", core.ErrVectorStoreFailure, err)
	}
	return n > 0, nil
}

// GetDocument reads one document hash.
func (s *VectorStore) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrVectorStoreFailure, err)
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseDocument(id, fields)
}

// GetDocuments reads the existing documents among ids in one pipeline.
func (s *VectorStore) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrVectorStoreFailure, err)
	}

	var docs []*core.Document
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		doc, err := parseDocument(ids[i], fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// KNN runs a RediSearch vector query sorted by ascending cosine distance.
func (s *VectorStore) KNN(ctx context.Context, vector []float32, k int) ([]storage.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	res, err := s.client.FTSearchWithArgs(ctx, s.indexName, knnQuery(k), &goredis.FTSearchOptions{
		Return: []goredis.FTSearchReturn{
			{FieldName: fieldData},
			{FieldName: fieldType},
			{FieldName: fieldDistance},
		},
		SortBy:         []goredis.FTSearchSortBy{{FieldName: fieldDistance, Asc: true}},
		Params:         map[string]interface{}{"query_vec": encodeVector(vector)},
		DialectVersion: 2,
		Limit:          k,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: knn: %w", core.ErrVectorStoreFailure, err)
	}

	hits := make([]storage.Hit, 0, len(res.Docs))
	for _, d := range res.Docs {
		hit, err := s.parseHit(d)
		if err != nil {
			s.logger.Warn("skipping malformed search result", "key", d.ID, "error", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// KeywordSearch runs a full-text query on the data field of text documents.
func (s *VectorStore) KeywordSearch(ctx context.Context, text string, limit int) ([]core.ID, error) {
	query := keywordQuery(text)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	res, err := s.client.FTSearchWithArgs(ctx, s.indexName, query, &goredis.FTSearchOptions{
		NoContent:      true,
		DialectVersion: 2,
		Limit:          limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %w", core.ErrVectorStoreFailure, err)
	}
	ids := make([]core.ID, 0, len(res.Docs))
	for _, d := range res.Docs {
		ids = append(ids, s.idFromKey(d.ID))
	}
	return ids, nil
}

// ForEachDocument walks every document hash with SCAN.
func (s *VectorStore) ForEachDocument(ctx context.Context, fn func(*core.Document) error) error {
	return s.scan(ctx, func(keys []string) error {
		ids := make([]core.ID, len(keys))
		for i, k := range keys {
			ids[i] = s.idFromKey(k)
		}
		docs, err := s.GetDocuments(ctx, ids...)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of document hashes.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.scan(ctx, func(keys []string) error {
		count += len(keys)
		return nil
	})
	return count, err
}

func (s *VectorStore) scan(ctx context.Context, fn func(keys []string) error) error {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: scan: %w", core.ErrVectorStoreFailure, err)
		}
		// SCAN may return a key more than once.
		fresh := keys[:0]
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			fresh = append(fresh, k)
		}
		if len(fresh) > 0 {
			if err := fn(fresh); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *VectorStore) parseHit(d goredis.Document) (storage.Hit, error) {
	modality, err := core.ParseModality(d.Fields[fieldType])
	if err != nil {
		return storage.Hit{}, err
	}
	distance, err := strconv.ParseFloat(d.Fields[fieldDistance], 64)
	if err != nil {
		return storage.Hit{}, fmt.Errorf("parse distance: %w", err)
	}
	return storage.Hit{
		Id:       s.idFromKey(d.ID),
		Modality: modality,
		Payload:  d.Fields[fieldData],
		Distance: distance,
	}, nil
}

func parseDocument(id core.ID, fields map[string]string) (*core.Document, error) {
	modality, err := core.ParseModality(fields[fieldType])
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %w", storage.ErrSerializationFailed, id, err)
	}
	vector, err := decodeVector([]byte(fields[fieldEmbedding]))
	if err != nil {
		return nil, fmt.Errorf("%w: document %s: %w", storage.ErrSerializationFailed, id, err)
	}
	doc := &core.Document{
		Id:         id,
		Modality:   modality,
		Payload:    fields[fieldData],
		Vector:     vector,
		Normalized: fields[fieldNormalized] == "1",
	}
	if raw := fields[fieldInsertedAt]; raw != "" {
		micros, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: document %s: %w", storage.ErrSerializationFailed, id, err)
		}
		doc.InsertedAt = time.UnixMicro(micros).UTC()
	}
	return doc, nil
}

func knnQuery(k int) string {
	return fmt.Sprintf("*=>[KNN %d @%s $query_vec AS %s]", k, fieldEmbedding, fieldDistance)
}

// keywordQuery builds a RediSearch query matching text documents whose data
// field contains every term. Returns "" when text has no terms.
func keywordQuery(text string) string {
	terms := strings.Fields(text)
	escaped := make([]string, 0, len(terms))
	for _, t := range terms {
		if e := escapeTerm(t); e != "" {
			escaped = append(escaped, e)
		}
	}
	if len(escaped) == 0 {
		return ""
	}
	return fmt.Sprintf("@%s:{text} @%s:(%s)", fieldType, fieldData, strings.Join(escaped, " "))
}

// escapeTerm backslash-escapes RediSearch query syntax characters.
func escapeTerm(term string) string {
	var b strings.Builder
	for _, r := range term {
		if strings.ContainsRune(`,.<>{}[]"':;!@#$%^&*()-+=~|/\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
