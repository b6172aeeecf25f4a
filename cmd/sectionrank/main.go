package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/dgallion1/sectionrank/internal/config"
	"github.com/dgallion1/sectionrank/internal/embed"
	"github.com/dgallion1/sectionrank/internal/parser"
	"github.com/dgallion1/sectionrank/internal/pipeline"
)

const (
	ProgramName   = "sectionrank"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/dgallion1/sectionrank"
)

type args struct {
	Input     string `arg:"--input,-i,required" help:"input descriptor (JSON or YAML)"`
	Documents string `arg:"--documents,-d" default:"documents" help:"directory holding the listed documents"`
	Output    string `arg:"--output,-o" default:"output.json" help:"where to write the result"`

	TopK         *int     `arg:"--top-k" help:"sections selected by MMR [env: TOP_K_SECTIONS]"`
	Lambda       *float64 `arg:"--lambda" help:"MMR relevance weight in [0, 1] [env: MMR_LAMBDA]"`
	TopSentences *int     `arg:"--top-sentences" help:"sentence pool size [env: TOP_SENTENCES]"`
	TopSnippets  *int     `arg:"--top-snippets" help:"snippets returned [env: TOP_SNIPPETS]"`

	Backend  string `arg:"--embed-backend" help:"openai or hashing [env: EMBED_BACKEND]"`
	Endpoint string `arg:"--embed-endpoint" help:"OpenAI-compatible base URL [env: EMBED_ENDPOINT]"`
	Model    string `arg:"--embed-model" help:"embedding model name [env: EMBED_MODEL]"`

	Verbose bool `arg:"--verbose,-v" help:"debug logging"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("Remaining settings come from the environment. For more information visit %s", RepositoryUrl)
}

func main() {
	var a args
	p, err := arg.NewParser(arg.Config{Program: ProgramName}, &a)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	level := slog.LevelInfo
	if a.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, a, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func (a args) apply(cfg *config.Config) {
	if a.TopK != nil {
		cfg.TopKSections = *a.TopK
	}
	if a.Lambda != nil {
		cfg.MMRLambda = *a.Lambda
	}
	if a.TopSentences != nil {
		cfg.TopSentences = *a.TopSentences
	}
	if a.TopSnippets != nil {
		cfg.TopSnippets = *a.TopSnippets
	}
	if a.Backend != "" {
		cfg.EmbedBackend = a.Backend
	}
	if a.Endpoint != "" {
		cfg.EmbedEndpoint = a.Endpoint
	}
	if a.Model != "" {
		cfg.EmbedModel = a.Model
	}
}

func run(ctx context.Context, a args, log *slog.Logger) error {
	cfg := config.Load()
	a.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	in, err := pipeline.LoadInput(a.Input)
	if err != nil {
		return err
	}
	refs, err := in.ResolveDocuments(a.Documents)
	if err != nil {
		return err
	}
	log = log.With("collection", in.Collection(a.Documents))

	docs, err := pipeline.LoadDocuments(a.Documents, refs, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return err
	}
	log.Info("loaded documents", "documents", len(docs))

	ec := cfg.Embed()
	ec.Logger = log
	embedder, err := embed.New(ec)
	if err != nil {
		return err
	}
	if err := embed.Probe(ctx, embedder); err != nil {
		return err
	}

	out, err := pipeline.NewAnalyzer(embedder, log).Run(ctx, pipeline.Request{
		Query:     in.JobToBeDone.Task,
		Persona:   in.Persona.Role,
		Documents: docs,
		Params:    pipeline.ParamsFromConfig(cfg),
	})
	if err != nil {
		return err
	}

	if err := out.WriteFile(a.Output); err != nil {
		return err
	}
	log.Info("wrote output", "path", a.Output,
		"sections", len(out.ExtractedSections),
		"snippets", len(out.SubsectionAnalysis))
	return nil
}
