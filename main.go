package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"

	"github.com/swissdoc/apply-agent/internal/api"
	"github.com/swissdoc/apply-agent/internal/catalog"
	"github.com/swissdoc/apply-agent/internal/compose"
	"github.com/swissdoc/apply-agent/internal/config"
	"github.com/swissdoc/apply-agent/internal/engine"
	"github.com/swissdoc/apply-agent/internal/gui"
	"github.com/swissdoc/apply-agent/internal/ingest"
	"github.com/swissdoc/apply-agent/internal/mailer"
	"github.com/swissdoc/apply-agent/internal/store"
)

func main() {
	_ = godotenv.Load()

	guiMode := flag.Bool("gui", false, "run the desktop interface instead of the HTTP server")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.ApplyToEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	fsClient, err := firestore.NewClient(ctx, cfg.GoogleCloudProject)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	st := store.NewFirestoreStore(fsClient, cfg.FirestoreCollection)
	defer st.Close()

	vertex, err := compose.NewVertexAIClient(ctx)
	if err != nil {
		log.Fatalf("Failed to create Vertex AI client: %v", err)
	}
	defer vertex.Close()
	composer := compose.NewComposer(vertex)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load job catalog: %v", err)
	}
	log.Printf("loaded %d job postings from %s", cat.Len(), cfg.CatalogPath)

	eng := engine.New(st, composer)
	pipeline := ingest.NewPipeline(composer, st)

	auth := func(ctx context.Context) (api.LoginMailer, error) {
		return mailer.Authenticate(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	}

	if *guiMode {
		gui.NewApp(cfg, eng, cat, st, pipeline, auth).Run()
		return
	}

	server := api.NewServer(eng, cat, st, pipeline, auth)

	fmt.Printf("Starting Apply Agent on %s...\n", cfg.ListenAddr)
	fmt.Printf("Endpoints:\n")
	fmt.Printf("  POST /login - Sign in with Gmail\n")
	fmt.Printf("  GET /jobs/next - Next actionable job posting\n")

	if err := http.ListenAndServe(cfg.ListenAddr, server.Router()); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
