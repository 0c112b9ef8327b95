// Package app provides the generation pipeline, its state, and events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ink-hatch/internal/export"
	"ink-hatch/internal/hatch"
	"ink-hatch/internal/job"
	"ink-hatch/internal/mask"
)

// ErrNoSource is returned when generating without a source drawing.
var ErrNoSource = errors.New("no source drawing")

// State holds the current job, its loaded source, and the last document.
type State struct {
	mu sync.RWMutex

	// Job
	JobPath string
	Job     *job.File

	// Source overrides the job's source path when set.
	SourcePath string
	Source     mask.Source

	// OutputPaths overrides the job's outputs when set.
	OutputPaths []string

	// Last generation
	Document *hatch.Document
	Stats    []hatch.LabelStats
	Elapsed  time.Duration

	// Settings
	Workers       int
	ExportOptions export.Options

	// Tweak adjusts every job made current, including reloads.
	Tweak func(f *job.File)
	// TweakLayer adjusts each resolved layer before masks are produced.
	TweakLayer func(l *job.LayerSpec)

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different pipeline events.
type EventType int

const (
	EventJobLoaded EventType = iota
	EventSourceLoaded
	EventGenerated
	EventExported
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a state holding a default job.
func NewState() *State {
	return &State{
		Job:           job.New(""),
		ExportOptions: export.DefaultOptions(),
		listeners:     make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadJob reads a job file and makes it current.
func (s *State) LoadJob(path string) error {
	f, err := job.Load(path)
	if err != nil {
		return err
	}
	return s.SetJob(path, f)
}

// SetJob applies Tweak and makes f current. path may be empty for jobs built
// from flags. A job with out-of-range parameters is rejected and the current
// job is kept.
func (s *State) SetJob(path string, f *job.File) error {
	if s.Tweak != nil {
		s.Tweak(f)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	f.Normalize()

	s.mu.Lock()
	s.JobPath = path
	s.Job = f
	s.Source = nil
	s.mu.Unlock()

	s.Emit(EventJobLoaded, path)
	return nil
}

// ResolvedSourcePath returns the source override or the job's source.
func (s *State) ResolvedSourcePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.SourcePath != "" {
		return s.SourcePath
	}
	return s.Job.GetSourcePath(s.JobPath)
}

// ResolvedOutputPaths returns the output override or the job's outputs.
func (s *State) ResolvedOutputPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.OutputPaths) > 0 {
		return s.OutputPaths
	}
	return s.Job.GetOutputPaths(s.JobPath)
}

// LoadSource decodes the source drawing with the job's raster settings.
func (s *State) LoadSource() error {
	path := s.ResolvedSourcePath()
	if path == "" {
		return ErrNoSource
	}

	s.mu.RLock()
	svgOpts, bmpOpts := SourceOptions(s.Job)
	s.mu.RUnlock()

	src, err := mask.Open(path, svgOpts, bmpOpts)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	w, h := src.Size()
	log.Printf("Loaded %s source %s: %dx%d px, %d colors", src.Kind(), path, w, h, len(src.Colors()))

	s.mu.Lock()
	s.Source = src
	s.mu.Unlock()

	s.Emit(EventSourceLoaded, src)
	return nil
}

// Generate runs the engine over the current source, loading it first if
// needed. No document is kept when any layer fails.
func (s *State) Generate(ctx context.Context) (*hatch.Document, error) {
	s.mu.RLock()
	src := s.Source
	s.mu.RUnlock()
	if src == nil {
		if err := s.LoadSource(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		src = s.Source
		s.mu.RUnlock()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	layers := s.Layers(src)
	req, err := BuildRequest(s.Job, layers, src, s.Workers)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := hatch.Hatch(req)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	log.Printf("Hatch: %d polylines from %d layers on %.1fx%.1f mm in %v",
		len(doc.Polylines), len(req.Layers), doc.WidthMM, doc.HeightMM, elapsed.Round(time.Millisecond))

	s.mu.Lock()
	s.Document = doc
	s.Stats = hatch.Summarize(doc)
	s.Elapsed = elapsed
	s.mu.Unlock()

	s.Emit(EventGenerated, doc)
	return doc, nil
}

// Layers returns the resolved layers of the current job for src, adjusted by
// TweakLayer. The job itself is not modified.
func (s *State) Layers(src mask.Source) []job.LayerSpec {
	resolved := ResolveLayers(s.Job, src)
	layers := make([]job.LayerSpec, len(resolved))
	copy(layers, resolved)
	if s.TweakLayer != nil {
		for i := range layers {
			s.TweakLayer(&layers[i])
		}
	}
	return layers
}

// Export writes the last document to every output path, choosing the format
// from each extension. It returns the paths written.
func (s *State) Export(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	doc := s.Document
	opts := s.ExportOptions
	s.mu.RUnlock()
	if doc == nil {
		return nil, errors.New("nothing generated yet")
	}

	paths := s.ResolvedOutputPaths()
	if len(paths) == 0 {
		return nil, errors.New("no output paths")
	}

	// Resolve every target before writing any file.
	targets := make([]export.Target, len(paths))
	for i, p := range paths {
		t, err := export.TargetForPath(p)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}

	var written []string
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := targets[i].WriteFileWith(p, doc, opts); err != nil {
			return written, err
		}
		log.Printf("Wrote %s %s", targets[i], p)
		written = append(written, p)
	}

	s.Emit(EventExported, written)
	return written, nil
}

// Run generates and exports in one step.
func (s *State) Run(ctx context.Context) ([]string, error) {
	if _, err := s.Generate(ctx); err != nil {
		return nil, err
	}
	return s.Export(ctx)
}

// Reload drops the loaded source, rereads the job file if there is one, and
// runs again.
func (s *State) Reload(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	path := s.JobPath
	s.mu.RUnlock()

	if path != "" {
		if err := s.LoadJob(path); err != nil {
			return nil, err
		}
	} else {
		s.mu.Lock()
		s.Source = nil
		s.mu.Unlock()
	}
	return s.Run(ctx)
}
