package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/dgallion1/sectionrank/internal/doctree"
	"github.com/dgallion1/sectionrank/internal/parser"
)

// Input is the descriptor for one collection run. It is read from JSON or
// YAML with the same field names.
type Input struct {
	ChallengeInfo ChallengeInfo `json:"challenge_info" yaml:"challenge_info"`
	Documents     []DocumentRef `json:"documents" yaml:"documents"`
	Persona       Persona       `json:"persona" yaml:"persona"`
	JobToBeDone   JobToBeDone   `json:"job_to_be_done" yaml:"job_to_be_done"`
}

type ChallengeInfo struct {
	ChallengeID  string `json:"challenge_id" yaml:"challenge_id"`
	TestCaseName string `json:"test_case_name" yaml:"test_case_name"`
	Description  string `json:"description" yaml:"description"`
}

type DocumentRef struct {
	Filename string `json:"filename" yaml:"filename"`
	Title    string `json:"title" yaml:"title"`
}

type Persona struct {
	Role string `json:"role" yaml:"role"`
}

type JobToBeDone struct {
	Task string `json:"task" yaml:"task"`
}

// LoadInput reads an input descriptor. Content starting with '{' is decoded
// as JSON, anything else as YAML.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return ParseInput(data)
}

func ParseInput(data []byte) (*Input, error) {
	var in Input
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("input descriptor is empty")
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &in); err != nil {
			return nil, fmt.Errorf("decode input json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &in); err != nil {
			return nil, fmt.Errorf("decode input yaml: %w", err)
		}
	}
	if strings.TrimSpace(in.JobToBeDone.Task) == "" {
		return nil, ErrEmptyQuery
	}
	return &in, nil
}

// Collection names the run; it falls back to the documents directory name.
func (in *Input) Collection(dir string) string {
	if in.ChallengeInfo.TestCaseName != "" {
		return in.ChallengeInfo.TestCaseName
	}
	return filepath.Base(filepath.Clean(dir))
}

// ResolveDocuments returns the document references to load from dir. An
// empty list selects every PDF in dir, sorted by name. Every listed file
// must exist.
func (in *Input) ResolveDocuments(dir string) ([]DocumentRef, error) {
	if len(in.Documents) == 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		refs := make([]DocumentRef, 0, len(names))
		for _, n := range names {
			refs = append(refs, DocumentRef{Filename: n})
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("%w: no pdf files in %s", ErrNoDocuments, dir)
		}
		return refs, nil
	}

	for _, ref := range in.Documents {
		if ref.Filename == "" {
			return nil, fmt.Errorf("%w: document entry without filename", ErrMissingDocument)
		}
		info, err := os.Stat(filepath.Join(dir, ref.Filename))
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrMissingDocument, ref.Filename)
		}
	}
	return in.Documents, nil
}

// LoadDocuments parses each referenced file in order. Any unreadable or
// unparseable file fails the whole load.
func LoadDocuments(dir string, refs []DocumentRef, opts parser.Options) ([]*doctree.Document, error) {
	docs := make([]*doctree.Document, 0, len(refs))
	for _, ref := range refs {
		doc, err := loadDocument(filepath.Join(dir, ref.Filename), opts)
		if err != nil {
			return nil, err
		}
		doc.Name = ref.Filename
		if ref.Title != "" {
			doc.Title = ref.Title
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadDocument(path string, opts parser.Options) (*doctree.Document, error) {
	name := filepath.Base(path)
	p, err := parser.ForFile(name, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDocument, name)
	}
	defer f.Close()

	doc, err := p.Parse(f, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}
