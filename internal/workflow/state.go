package workflow

import (
	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/client"
	"chunk_visualizer/internal/document"
	"chunk_visualizer/internal/strategy"
)

// Phase is the single gate shared by the two remote operations.
type Phase int

const (
	Idle Phase = iota
	Uploading
	Chunking
)

func (p Phase) String() string {
	switch p {
	case Uploading:
		return "uploading"
	case Chunking:
		return "chunking"
	default:
		return "idle"
	}
}

// State is a read-only snapshot of the workflow.
type State struct {
	// Catalog is nil until Initialize succeeds.
	Catalog *client.Catalog
	// File is the locally selected document, nil when nothing is selected.
	File *document.Local
	// ServerFilename is set only after a successful upload of File.
	ServerFilename string
	// Params.Name is the selected strategy.
	Params    strategy.Set
	Result    *chunker.Result
	Phase     Phase
	LastError string
}

func (s State) Busy() bool { return s.Phase != Idle }

func (s State) CanUpload() bool { return s.File != nil && !s.Busy() }

func (s State) CanChunk() bool {
	return s.ServerFilename != "" && s.Catalog != nil && !s.Busy()
}

func (s State) clone() State {
	out := s
	if s.Catalog != nil {
		cat := *s.Catalog
		cat.Strategies = append([]string(nil), s.Catalog.Strategies...)
		out.Catalog = &cat
	}
	if s.File != nil {
		f := *s.File
		out.File = &f
	}
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	out.Params = s.Params.Clone()
	return out
}
