// Package vectorstore provides a Qdrant-backed store for paper text chunks,
// used by the retrieval-augmented question answering pipeline.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
)

// Config holds the configuration for connecting to a Qdrant instance.
type Config struct {
	// Address is the host:port of the Qdrant gRPC endpoint (e.g. "localhost:6334").
	Address string
	// CollectionName is the Qdrant collection to use (e.g. "research_papers").
	CollectionName string
	// VectorSize is the dimensionality of the embedding vectors (e.g. 1536 for text-embedding-3-small).
	VectorSize uint64
}

// Validate checks that all required Config fields are set.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("vectorstore config: address is required")
	}
	if c.CollectionName == "" {
		return fmt.Errorf("vectorstore config: collection name is required")
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("vectorstore config: vector size must be > 0")
	}
	return nil
}

// Document is one embedded text chunk with its provenance metadata.
type Document struct {
	// ID identifies the chunk; it doubles as the Qdrant point ID so
	// re-indexing a chunk is idempotent.
	ID uuid.UUID
	// Text is the chunk's text content.
	Text string
	// Metadata carries provenance (paper title, source, chunk index).
	Metadata map[string]string
	// Vector is the chunk's embedding.
	Vector []float32
}

// SearchResult is a single hit from a similarity search.
type SearchResult struct {
	// Text is the stored chunk text.
	Text string
	// Metadata is the stored provenance metadata.
	Metadata map[string]string
	// Score is the cosine similarity score (higher is more similar).
	Score float32
}

// VectorStore defines the interface for chunk storage and retrieval.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not already exist.
	EnsureCollection(ctx context.Context) error
	// Upsert inserts or updates a batch of documents.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the topK most similar chunks to the vector.
	Search(ctx context.Context, vector []float32, topK uint64) ([]SearchResult, error)
	// Close releases the underlying gRPC connection.
	Close() error
}

// Compile-time check that Client implements VectorStore.
var _ VectorStore = (*Client)(nil)

// Payload keys under which chunk data is stored.
const (
	payloadTextKey = "text"
)

// Client is a Qdrant vector store client that implements VectorStore via gRPC.
type Client struct {
	client         *pb.Client
	collectionName string
	vectorSize     uint64
}

// NewClient creates a new Qdrant client by dialing the configured gRPC address.
// The connection uses insecure credentials, suitable for internal network deployments.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, port, err := parseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid address %q: %w", cfg.Address, err)
	}

	qdrantClient, err := pb.NewClient(&pb.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: failed to create client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		collectionName: cfg.CollectionName,
		vectorSize:     cfg.VectorSize,
	}, nil
}

// EnsureCollection checks whether the configured collection exists and creates
// it with cosine distance if it does not.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("vectorstore: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &pb.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     c.vectorSize,
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: failed to create collection %q: %w", c.collectionName, err)
	}

	return nil
}

// Upsert writes the documents as points, text and metadata in the payload.
// Document IDs are used as point IDs, so repeated indexing overwrites.
func (c *Client) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &pb.PointStruct{
			Id:      pb.NewIDUUID(doc.ID.String()),
			Vectors: pb.NewVectors(doc.Vector...),
			Payload: buildPayload(doc),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: failed to upsert %d points: %w", len(points), err)
	}

	return nil
}

// Search performs a nearest-neighbor vector search returning up to topK
// results ordered by cosine similarity (descending).
func (c *Client) Search(ctx context.Context, vector []float32, topK uint64) ([]SearchResult, error) {
	scored, err := c.client.Query(ctx, &pb.QueryPoints{
		CollectionName: c.collectionName,
		Query:          pb.NewQueryDense(vector),
		Limit:          &topK,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, sp := range scored {
		results = append(results, SearchResult{
			Text:     sp.Payload[payloadTextKey].GetStringValue(),
			Metadata: extractMetadata(sp.Payload),
			Score:    sp.Score,
		})
	}

	return results, nil
}

// Close releases the gRPC connection to Qdrant.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// buildPayload flattens a document's text and metadata into a point payload.
// Metadata keys share the payload namespace with the text key; the text key
// wins on collision.
func buildPayload(doc Document) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(doc.Metadata)+1)
	for key, value := range doc.Metadata {
		payload[key] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: value}}
	}
	payload[payloadTextKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: doc.Text}}
	return payload
}

// extractMetadata recovers the string metadata from a point payload,
// excluding the text key.
func extractMetadata(payload map[string]*pb.Value) map[string]string {
	metadata := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == payloadTextKey {
			continue
		}
		if s := value.GetStringValue(); s != "" {
			metadata[key] = s
		}
	}
	return metadata
}

// parseAddress splits an address string of the form "host:port" into its components.
func parseAddress(addr string) (string, int, error) {
	host, portStr, err := splitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}

	return host, port, nil
}

// splitHostPort splits an address into host and port strings.
func splitHostPort(addr string) (string, string, error) {
	// Find last colon (handles IPv6 addresses in brackets).
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("missing port in address %q", addr)
}

// parsePort converts a port string to an integer.
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty port")
	}
	var port int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid port %q", s)
		}
		port = port*10 + int(c-'0')
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
