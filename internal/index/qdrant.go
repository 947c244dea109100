package index

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// collectionPrefix namespaces this service's collections on a shared Qdrant
// server.
const collectionPrefix = "assessments"

var collectionSeq atomic.Uint64

// Qdrant is a connection to a Qdrant server that builds collection-backed
// searchers. Every Build materializes a brand-new collection and returns a
// searcher bound to it, so an index already being served is never touched by
// a rebuild; the caller publishes the returned searcher with its own snapshot
// swap. The previous build's collection is kept until the build after it, so
// searches on an outgoing snapshot can drain; anything older is deleted.
type Qdrant struct {
	client *qdrant.Client

	mu       sync.Mutex
	draining string
}

// NewQdrant connects to a Qdrant server.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrant(ctx context.Context, url string) (*Qdrant, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Qdrant{client: client}, nil
}

// Close closes the Qdrant client connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// Build creates a fresh collection, upserts one point per record parallel to
// the given embeddings, and returns a searcher over that collection. Point
// ids are catalog ordinals; the record id travels in the payload.
func (q *Qdrant) Build(ctx context.Context, ids []string, embeddings [][]float32) (*QdrantIndex, error) {
	if len(ids) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d records, %d embeddings", ErrCountMismatch, len(ids), len(embeddings))
	}
	if len(ids) == 0 {
		// An empty index never searches, so no collection is needed.
		return &QdrantIndex{client: q.client}, nil
	}

	dim := len(embeddings[0])
	for i, vec := range embeddings {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, index has %d",
				ErrDimensionMismatch, i, len(vec), dim)
		}
	}

	name := newCollectionName()

	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: map[string]*qdrant.Value{
				"record_id": qdrant.NewValueString(id),
			},
		}
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	}); err != nil {
		// Don't leave a half-built collection behind.
		_ = q.client.DeleteCollection(ctx, name)
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}

	q.mu.Lock()
	drainable := q.draining
	q.draining = name
	q.mu.Unlock()

	if existing, err := q.client.ListCollections(ctx); err == nil {
		for _, stale := range staleCollections(existing, name, drainable) {
			// Best effort; leftovers are retried on the next build.
			_ = q.client.DeleteCollection(ctx, stale)
		}
	}

	return &QdrantIndex{
		client:     q.client,
		collection: name,
		dim:        dim,
		count:      len(ids),
	}, nil
}

// newCollectionName returns a collection name unique within and across
// process runs.
func newCollectionName() string {
	return fmt.Sprintf("%s_%d_%d", collectionPrefix, time.Now().Unix(), collectionSeq.Add(1))
}

// staleCollections filters existing collection names down to the ones owned
// by this service that are not in the keep set.
func staleCollections(existing []string, keep ...string) []string {
	var stale []string
	for _, name := range existing {
		if !strings.HasPrefix(name, collectionPrefix) {
			continue
		}
		kept := false
		for _, k := range keep {
			if name == k {
				kept = true
				break
			}
		}
		if !kept {
			stale = append(stale, name)
		}
	}
	return stale
}

// QdrantIndex is one built collection. Immutable once Build returns, so
// concurrent searches need no synchronization. Searches run with exact mode
// enabled so results match the Flat index (no HNSW approximation). Unlike
// Flat, equal-score ordering is whatever Qdrant returns; deployments that
// need byte-for-byte reproducible ties use the memory backend.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dim        int
	count      int
}

// Search returns up to k hits ordered by descending similarity.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]CandidateHit, error) {
	if q.count == 0 {
		return nil, nil
	}
	if len(vector) != q.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(vector), q.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > q.count {
		k = q.count
	}

	response, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Params: &qdrant.SearchParams{
			Exact: qdrant.PtrOf(true),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]CandidateHit, 0, len(response))
	for _, point := range response {
		hit := CandidateHit{Score: point.Score}
		if payload := point.Payload; payload != nil {
			if id, ok := payload["record_id"]; ok {
				hit.ID = id.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Dimension returns the dimensionality the index was built with.
func (q *QdrantIndex) Dimension() int {
	return q.dim
}

// Len returns the number of indexed records.
func (q *QdrantIndex) Len() int {
	return q.count
}

// Ensure QdrantIndex implements Searcher.
var _ Searcher = (*QdrantIndex)(nil)
