package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/sectionrank/internal/doctree"
	"github.com/dgallion1/sectionrank/internal/parser"
)

// Worker processes a single analysis job.
type Worker struct {
	analyzer *Analyzer
	jobs     *JobStore
	opts     parser.Options
	log      *slog.Logger
}

func NewWorker(analyzer *Analyzer, jobs *JobStore, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		analyzer: analyzer,
		jobs:     jobs,
		opts:     opts,
		log:      log,
	}
}

// Process parses the uploaded documents and runs the analysis.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	// Identical submissions reuse the earlier result.
	if w.jobs != nil {
		if out, ok := w.jobs.FindCompleted(job.ContentHash); ok {
			log.Info("reusing result of identical job", "content_hash", job.ContentHash)
			job.Complete(out, "cached")
			return
		}
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	docs, err := w.parseUploads(job.Uploads())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", err)
		return
	}
	pages := 0
	for _, d := range docs {
		pages += len(d.Pages)
	}
	job.SetParsed(len(docs), pages)
	log.Info("parsed documents", "documents", len(docs), "pages", pages)

	// Phase 2: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	out, err := w.analyzer.WithLogger(log).Run(ctx, Request{
		Query:     job.Query,
		Persona:   job.Persona,
		Documents: docs,
		Params:    job.Params,
	})
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.Fail("analyzing", err)
		return
	}

	job.Complete(out, "done")
	log.Info("analysis complete",
		"sections", len(out.ExtractedSections),
		"snippets", len(out.SubsectionAnalysis))
}

func (w *Worker) parseUploads(uploads []Upload) ([]*doctree.Document, error) {
	if len(uploads) == 0 {
		return nil, ErrNoDocuments
	}
	docs := make([]*doctree.Document, 0, len(uploads))
	for _, u := range uploads {
		p, err := parser.ForFile(u.Filename, w.opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.Filename, err)
		}
		doc, err := p.Parse(bytes.NewReader(u.Data), u.Filename)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", u.Filename, err)
		}
		doc.Name = u.Filename
		docs = append(docs, doc)
	}
	return docs, nil
}
