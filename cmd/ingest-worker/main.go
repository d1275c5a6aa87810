// Command ingest-worker consumes document ingestion jobs from NATS and runs
// them through the retrieval pipeline into Qdrant and Neo4j.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/PitchlineAI/pitchline-mvp/engine/catalog"
	"github.com/PitchlineAI/pitchline-mvp/engine/chunk"
	"github.com/PitchlineAI/pitchline-mvp/engine/ingest"
	"github.com/PitchlineAI/pitchline-mvp/engine/rag"
	"github.com/PitchlineAI/pitchline-mvp/engine/semantic"
	"github.com/PitchlineAI/pitchline-mvp/pkg/metrics"
	"github.com/PitchlineAI/pitchline-mvp/pkg/ollama"
	"github.com/PitchlineAI/pitchline-mvp/pkg/openaiembed"
)

var met = metrics.New()

const ollamaDims = 768 // nomic-embed-text

func main() {
	_ = godotenv.Load()

	var (
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", os.Getenv("NEO4J_PASSWORD"), "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "pitchline", "Qdrant collection name")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL (fallback embedder)")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		metricsPort = flag.Int("metrics-port", 9091, "Prometheus metrics port")
		embedWorkers = flag.Int("embed-workers", 4, "concurrent embed+insert calls per document")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.ServeAsync(*metricsPort)

	// Connect Neo4j
	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Error("neo4j verify failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Neo4j")
	products := catalog.New(driver)

	// Embedder: OpenAI when a key is configured, Ollama otherwise.
	var embedder rag.Embedder
	dims := ollamaDims
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		oc := openaiembed.New(key)
		embedder = oc
		dims = oc.Dims()
		log.Info("using OpenAI embeddings")
	} else {
		embedder = ollama.New(*ollamaURL, *ollamaModel)
		log.Info("using Ollama embeddings", "model", *ollamaModel)
	}

	// Connect Qdrant. Ingestion requires the index, so failures are fatal
	// here, unlike the read-path commands.
	vs, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, dims); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", *collection, "dims", dims)

	counter, err := chunk.NewTokenCounter()
	if err != nil {
		log.Error("token encoding load failed", "error", err)
		os.Exit(1)
	}
	splitter := chunk.NewSplitter(counter.Count)

	opts := rag.DefaultOptions()
	opts.EmbedWorkers = *embedWorkers
	svc := rag.New(embedder, vs, products, splitter, opts, log)

	// Connect NATS
	nc, err := nats.Connect(*natsURL, nats.Name("pitchline-ingest-worker"))
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	sub, err := ingest.StartConsumer(nc, ingest.Deps{
		Processor: svc,
		Metrics:   met,
		Logger:    log,
	})
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("ingest worker running", "subject", ingest.JobsSubject)
	<-ctx.Done()
	log.Info("shutting down")
}
