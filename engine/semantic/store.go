// Package semantic owns vector storage and similarity search. The primary
// Store delegates to a Qdrant collection; MemStore is an embedded
// brute-force alternative with identical semantics.
package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// pointsAPI is the slice of pb.PointsClient the store uses; narrowed for
// mockability.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address.
// Callers decide index availability once, at construction, by following up
// with EnsureCollection; searches never re-probe.
func New(addr string, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients creates a Store with injected clients, for tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the cosine-distance collection if it doesn't
// exist. dims must match the embedding model's output dimensionality;
// mixing dimensionalities in one collection breaks score comparability.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Insert appends one chunk and returns its system-assigned id. Storage
// connectivity failures surface as ErrStorageUnavailable so the ingestion
// path is never silently lossy.
func (s *Store) Insert(ctx context.Context, rec ChunkRecord) (string, error) {
	if rec.Content == "" {
		return "", fmt.Errorf("semantic: insert: empty chunk content")
	}

	id := uuid.NewString()
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: id},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: rec.Embedding},
				},
			},
			Payload: encodePayload(rec),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("semantic: insert chunk %d for product %s: %w: %v",
			rec.ChunkIndex, rec.ProductID, domain.ErrStorageUnavailable, err)
	}
	return id, nil
}

// DeleteByProduct removes all chunks belonging to a product and returns how
// many were removed. Idempotent: a repeat call counts zero matches and
// deletes nothing.
func (s *Store) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	filter := &pb.Filter{Must: []*pb.Condition{fieldMatch(keyProductID, productID)}}

	exact := true
	count, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count by product %s: %w: %v", productID, domain.ErrStorageUnavailable, err)
	}
	n := int(count.GetResult().GetCount())
	if n == 0 {
		return 0, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: delete by product %s: %w: %v", productID, domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

// Search performs k-NN similarity search over a product's chunks. Errors
// propagate; degrading is the caller's policy, not the store's.
func (s *Store) Search(ctx context.Context, embedding []float32, productID string, topK int) ([]SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		Filter:         &pb.Filter{Must: []*pb.Condition{fieldMatch(keyProductID, productID)}},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search product %s: %w", productID, err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, point := range resp.GetResult() {
		results[i] = decodeResult(point)
	}
	return results, nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
