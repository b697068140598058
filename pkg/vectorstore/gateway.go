// Package vectorstore implements C8, the vector-store gateway: typed
// upsert/delete/search operations over named collections backed by Redis
// with the RediSearch vector-similarity module. No pack example wires a
// vector database directly, so the wire protocol here is raw RediSearch
// commands (FT.CREATE/FT.SEARCH) issued through go-redis's generic Do,
// the same idiom the ecosystem uses for module commands go-redis has no
// typed wrapper for.
package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/jandamek/jervis/pkg/config"
	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// RagDocument is what C6's storage stage upserts for one embedded chunk.
type RagDocument struct {
	ID          string // vector id; generated if empty
	ProjectID   string
	ClientID    string
	FilePath    string
	Symbol      string
	Description string
	Content     string
	Payload     map[string]string // flattened metadata, stored alongside the vector
}

// SearchResult is one hit from Search.
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// collectionKey identifies a RediSearch index by the model/dimension pair
// that produced its vectors.
type collectionKey struct {
	modelName string
	dimension int
}

func (k collectionKey) indexName(prefix string) string {
	return fmt.Sprintf("%s_%s_dim%d_idx", prefix, sanitize(k.modelName), k.dimension)
}

func (k collectionKey) keyPrefix(prefix string) string {
	return fmt.Sprintf("%s:%s:dim%d:", prefix, sanitize(k.modelName), k.dimension)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, s)
}

// Gateway is C8. It is safe for concurrent use; collection creation is
// serialized by mu.
type Gateway struct {
	client *redis.Client
	prefix string
	breaker *gobreaker.CircuitBreaker[any]

	mu       sync.Mutex
	known    map[string]collectionKey // collection family (modelName alone) -> last-created (modelName, dimension)
	indexed  map[collectionKey]bool   // collections whose FT index is known to exist
}

// New creates a vector-store gateway from its configuration.
func New(cfg *config.VectorStoreConfig, password string) *Gateway {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "vectorstore",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("vector store circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Gateway{
		client:  client,
		prefix:  cfg.CollectionPrefix,
		breaker: breaker,
		known:   make(map[string]collectionKey),
		indexed: make(map[collectionKey]bool),
	}
}

// Close releases the underlying Redis connection pool.
func (g *Gateway) Close() error {
	return g.client.Close()
}

func (g *Gateway) call(ctx context.Context, fn func() (any, error)) (any, error) {
	result, err := g.breaker.Execute(func() (any, error) { return fn() })
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, ingesterrors.NewGatewayError("vectorstore", err)
		}
		return nil, ingesterrors.NewTransientError(err)
	}
	return result, nil
}

// Upsert writes doc's vector into the (modelName, dimension) collection,
// creating the collection on first use, and returns its vector id.
func (g *Gateway) Upsert(ctx context.Context, modelName string, dimension int, doc RagDocument, vector []float32) (string, error) {
	if len(vector) != dimension {
		return "", ingesterrors.NewDataError(fmt.Errorf("vector has %d dimensions, want %d", len(vector), dimension))
	}

	key := collectionKey{modelName: modelName, dimension: dimension}
	if err := g.ensureCollection(ctx, key); err != nil {
		return "", err
	}

	id := doc.ID
	if id == "" {
		id = fmt.Sprintf("%s%s:%s", key.keyPrefix(g.prefix), doc.ProjectID, doc.FilePath)
	}

	fields := map[string]any{
		"project_id":  doc.ProjectID,
		"client_id":   doc.ClientID,
		"file_path":   doc.FilePath,
		"symbol":      doc.Symbol,
		"description": doc.Description,
		"content":     doc.Content,
		"vector":      encodeVector(vector),
	}
	for k, v := range doc.Payload {
		fields["meta_"+k] = v
	}

	_, err := g.call(ctx, func() (any, error) {
		return nil, g.client.HSet(ctx, key.keyPrefix(g.prefix)+id, fields).Err()
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteByFilter removes every document in the collection whose project_id
// and (optionally) file_path match filter, returning the count removed.
func (g *Gateway) DeleteByFilter(ctx context.Context, modelName string, dimension int, filter map[string]string) (int, error) {
	key := collectionKey{modelName: modelName, dimension: dimension}
	query := buildTagQuery(filter)

	raw, err := g.call(ctx, func() (any, error) {
		return g.client.Do(ctx, "FT.SEARCH", key.indexName(g.prefix), query, "NOCONTENT", "LIMIT", "0", "10000").Result()
	})
	if err != nil {
		if isUnknownIndex(err) {
			return 0, nil
		}
		return 0, err
	}

	ids := parseSearchIDs(raw)
	if len(ids) == 0 {
		return 0, nil
	}

	_, err = g.call(ctx, func() (any, error) {
		return nil, g.client.Del(ctx, ids...).Err()
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteByKnowledgeId removes every document tagged with knowledgeId for
// clientId, across the collection named by modelName/dimension.
func (g *Gateway) DeleteByKnowledgeId(ctx context.Context, modelName string, dimension int, knowledgeID, clientID string) error {
	_, err := g.DeleteByFilter(ctx, modelName, dimension, map[string]string{
		"client_id": clientID, "meta_knowledge_id": knowledgeID,
	})
	return err
}

// Search performs a KNN similarity search over the (modelName, dimension)
// collection, optionally filtered by exact-match tags, returning at most
// limit hits scoring at or above minScore.
func (g *Gateway) Search(ctx context.Context, modelName string, dimension int, queryVector []float32, filters map[string]string, limit int, minScore float64) ([]SearchResult, error) {
	if len(queryVector) != dimension {
		return nil, ingesterrors.NewDataError(fmt.Errorf("query vector has %d dimensions, want %d", len(queryVector), dimension))
	}
	key := collectionKey{modelName: modelName, dimension: dimension}

	prefixQuery := buildTagQuery(filters)
	query := fmt.Sprintf("(%s)=>[KNN %d @vector $vec AS score]", prefixQuery, limit)

	raw, err := g.call(ctx, func() (any, error) {
		return g.client.Do(ctx, "FT.SEARCH", key.indexName(g.prefix), query,
			"PARAMS", "2", "vec", encodeVector(queryVector),
			"SORTBY", "score",
			"DIALECT", "2",
		).Result()
	})
	if err != nil {
		if isUnknownIndex(err) {
			return nil, nil
		}
		return nil, err
	}

	hits := parseSearchHits(raw)
	var out []SearchResult
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// ensureCollection creates the RediSearch index for key if it doesn't
// already exist, and handles a dimension/model change by tearing down the
// prior collection for the same model family.
func (g *Gateway) ensureCollection(ctx context.Context, key collectionKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.indexed[key] {
		return nil
	}

	if prior, ok := g.known[key.modelName]; ok && prior != key {
		if err := g.dropCollectionLocked(ctx, prior); err != nil {
			slog.Warn("failed to drop superseded vector collection", "model", prior.modelName, "dimension", prior.dimension, "error", err)
		}
	}

	_, err := g.call(ctx, func() (any, error) {
		return g.client.Do(ctx, "FT.CREATE", key.indexName(g.prefix),
			"ON", "HASH", "PREFIX", "1", key.keyPrefix(g.prefix),
			"SCHEMA",
			"project_id", "TAG",
			"client_id", "TAG",
			"file_path", "TEXT",
			"vector", "VECTOR", "HNSW", "6",
			"TYPE", "FLOAT32", "DIM", strconv.Itoa(key.dimension), "DISTANCE_METRIC", "COSINE",
		).Result()
	})
	if err != nil && !strings.Contains(err.Error(), "Index already exists") {
		return err
	}

	g.indexed[key] = true
	g.known[key.modelName] = key
	return nil
}

func (g *Gateway) dropCollectionLocked(ctx context.Context, key collectionKey) error {
	_, err := g.call(ctx, func() (any, error) {
		return g.client.Do(ctx, "FT.DROPINDEX", key.indexName(g.prefix), "DD").Result()
	})
	delete(g.indexed, key)
	return err
}

func isUnknownIndex(err error) bool {
	return strings.Contains(err.Error(), "no such index") || strings.Contains(err.Error(), "Unknown index")
}

// encodeVector serializes a float32 vector into RediSearch's expected
// little-endian binary blob format.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// buildTagQuery renders an exact-match TAG filter clause for every entry in
// filter; an empty filter matches everything.
func buildTagQuery(filter map[string]string) string {
	if len(filter) == 0 {
		return "*"
	}
	var parts []string
	for k, v := range filter {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", k, escapeTag(v)))
	}
	return strings.Join(parts, " ")
}

func escapeTag(v string) string {
	replacer := strings.NewReplacer("-", "\\-", ".", "\\.", "@", "\\@", ":", "\\:")
	return replacer.Replace(v)
}

// parseSearchIDs extracts the document ids from a NOCONTENT FT.SEARCH reply:
// [total, id1, id2, ...].
func parseSearchIDs(raw any) []string {
	list, ok := raw.([]any)
	if !ok || len(list) < 2 {
		return nil
	}
	ids := make([]string, 0, len(list)-1)
	for _, item := range list[1:] {
		if id, ok := item.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseSearchHits extracts (id, fields) pairs from a full-content FT.SEARCH
// reply: [total, id1, [field, value, ...], id2, [field, value, ...], ...].
// The synthetic "score" field added by the KNN clause is pulled out as the
// result's Score; every other field lands in Payload.
func parseSearchHits(raw any) []SearchResult {
	list, ok := raw.([]any)
	if !ok || len(list) < 2 {
		return nil
	}

	var out []SearchResult
	for i := 1; i+1 < len(list); i += 2 {
		id, ok := list[i].(string)
		if !ok {
			continue
		}
		fieldList, ok := list[i+1].([]any)
		if !ok {
			continue
		}

		result := SearchResult{ID: id, Payload: make(map[string]string)}
		for j := 0; j+1 < len(fieldList); j += 2 {
			k, _ := fieldList[j].(string)
			v, _ := fieldList[j+1].(string)
			if k == "score" {
				if score, err := strconv.ParseFloat(v, 64); err == nil {
					result.Score = score
				}
				continue
			}
			result.Payload[k] = v
		}
		out = append(out, result)
	}
	return out
}
