// Command context assembles retrieval context for one product from the
// command line, exercising the same read path the message generator uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/PitchlineAI/pitchline-mvp/engine/catalog"
	"github.com/PitchlineAI/pitchline-mvp/engine/chunk"
	"github.com/PitchlineAI/pitchline-mvp/engine/rag"
	"github.com/PitchlineAI/pitchline-mvp/engine/semantic"
	"github.com/PitchlineAI/pitchline-mvp/pkg/ollama"
	"github.com/PitchlineAI/pitchline-mvp/pkg/openaiembed"
)

func main() {
	_ = godotenv.Load()

	var (
		role        = flag.String("role", "technical", "client role")
		productID   = flag.String("product", "", "product id (required)")
		purpose     = flag.String("purpose", "introduction", "message purpose")
		topK        = flag.Int("top-k", 3, "snippets to retrieve")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", os.Getenv("NEO4J_PASSWORD"), "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "pitchline", "Qdrant collection name")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL (fallback embedder)")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
	)
	flag.Parse()

	if *productID == "" {
		fmt.Fprintln(os.Stderr, "usage: context -product <id> [-role r] [-purpose p]")
		os.Exit(2)
	}

	log := slog.Default()
	ctx := context.Background()

	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	products := catalog.New(driver)

	var embedder rag.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder = openaiembed.New(key)
	} else {
		embedder = ollama.New(*ollamaURL, *ollamaModel)
	}

	// The read path tolerates a missing index: a nil store runs the
	// degraded product-info path.
	var store rag.VectorStore
	if vs, err := semantic.New(*qdrantAddr, *collection); err == nil {
		defer vs.Close()
		store = vs
	} else {
		log.Warn("qdrant unavailable, degraded mode", "error", err)
	}

	counter, err := chunk.NewTokenCounter()
	if err != nil {
		log.Error("token encoding load failed", "error", err)
		os.Exit(1)
	}

	opts := rag.DefaultOptions()
	opts.TopK = *topK
	svc := rag.New(embedder, store, products, chunk.NewSplitter(counter.Count), opts, log)

	snippets := svc.GenerateContext(ctx, *role, *productID, *purpose)
	if len(snippets) == 0 {
		fmt.Println("no context available")
		return
	}
	for i, s := range snippets {
		fmt.Printf("--- snippet %d (score %.3f, source %v) ---\n%s\n\n", i+1, s.RelevanceScore, s.Metadata["source"], s.Content)
	}
}
