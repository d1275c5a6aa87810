package semantic

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
)

// ChunkRecord is one embedded document chunk ready for storage. Records are
// append-only: re-ingesting a document creates a new chunk set unless the
// caller deletes the old one first.
type ChunkRecord struct {
	ProductID  string
	Content    string
	Metadata   map[string]any
	Embedding  []float32
	ChunkIndex int
}

// SearchResult is a single similarity hit. Score is the index's relative
// ranking signal; its scale depends on the search path and is not
// comparable across paths.
type SearchResult struct {
	ID         string
	Score      float32
	Content    string
	ProductID  string
	ChunkIndex int
	Metadata   map[string]any
}

// Payload keys reserved for chunk fields; loader metadata uses the rest.
const (
	keyContent    = "content"
	keyProductID  = "product_id"
	keyChunkIndex = "chunk_index"
)

// encodePayload flattens a chunk into a Qdrant payload map.
func encodePayload(rec ChunkRecord) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(rec.Metadata)+3)
	for k, v := range rec.Metadata {
		payload[k] = toValue(v)
	}
	payload[keyContent] = toValue(rec.Content)
	payload[keyProductID] = toValue(rec.ProductID)
	payload[keyChunkIndex] = toValue(rec.ChunkIndex)
	return payload
}

func toValue(val any) *pb.Value {
	switch tv := val.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromValue(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

// decodeResult maps a scored point back to a SearchResult, restoring the
// loader metadata from the non-reserved payload keys.
func decodeResult(point *pb.ScoredPoint) SearchResult {
	sr := SearchResult{
		ID:       point.GetId().GetUuid(),
		Score:    point.GetScore(),
		Metadata: make(map[string]any),
	}
	for k, val := range point.GetPayload() {
		switch k {
		case keyContent:
			sr.Content = val.GetStringValue()
		case keyProductID:
			sr.ProductID = val.GetStringValue()
		case keyChunkIndex:
			sr.ChunkIndex = int(val.GetIntegerValue())
		default:
			sr.Metadata[k] = fromValue(val)
		}
	}
	return sr
}
