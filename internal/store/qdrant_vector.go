package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"hybridrag/internal/embedding"
	"hybridrag/internal/model"
)

// payloadOriginalID is the payload field a chunk's real id is stashed under
// when it isn't itself a valid UUID, since Qdrant only accepts UUIDs or
// unsigned integers as point ids.
const payloadOriginalID = "_chunk_id"

const payloadText = "_text"

// qdrantVector indexes model.Chunk, storing chunk text in the payload
// alongside metadata so search results can be rendered without a second
// lookup.
type qdrantVector struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantVector connects to a Qdrant instance over its gRPC API (default
// port 6334) and ensures the named collection exists with the given
// dimension once the first EnsureDimension call arrives.
func NewQdrantVector(dsn, collection string, metric string) (VectorStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &qdrantVector{client: client, collection: collection, metric: strings.ToLower(strings.TrimSpace(metric))}, nil
}

func (q *qdrantVector) EnsureDimension(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("qdrant requires dimension > 0")
	}
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		q.dimension = dim
		return nil
	}
	if !embedding.ValidDimension(dim) {
		return fmt.Errorf("refusing to create qdrant collection %q with unrecognized embedding dimension %d", q.collection, dim)
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: distance,
		}),
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	q.dimension = dim
	return nil
}

func pointIDFor(chunkID string) (string, bool) {
	if _, err := uuid.Parse(chunkID); err == nil {
		return chunkID, false
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String(), true
}

func (q *qdrantVector) Upsert(ctx context.Context, chunk model.Chunk) error {
	pointUUID, remapped := pointIDFor(chunk.ID)
	payload := make(map[string]any, len(chunk.Metadata)+3)
	for k, v := range chunkMetadata(chunk) {
		payload[k] = v
	}
	payload[payloadText] = chunk.Text
	if remapped {
		payload[payloadOriginalID] = chunk.ID
	}
	vec := make([]float32, len(chunk.Embedding))
	copy(vec, chunk.Embedding)
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointUUID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (q *qdrantVector) Delete(ctx context.Context, chunkID string) error {
	pointUUID, _ := pointIDFor(chunkID)
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointUUID)),
	})
	return err
}

func (q *qdrantVector) Search(ctx context.Context, embedding []float32, k int) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]VectorResult, 0, len(hits))
	for _, hit := range hits {
		id := hit.Id.GetUuid()
		text := ""
		metadata := make(map[string]string)
		for k, v := range hit.Payload {
			switch k {
			case payloadOriginalID:
				id = v.GetStringValue()
			case payloadText:
				text = v.GetStringValue()
			default:
				metadata[k] = v.GetStringValue()
			}
		}
		out = append(out, VectorResult{ChunkID: id, Score: float64(hit.Score), Text: text, Metadata: metadata})
	}
	return out, nil
}

func (q *qdrantVector) Close() error {
	return q.client.Close()
}
