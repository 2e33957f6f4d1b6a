package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactSink persists generated binaries. Persistence is best-effort at
// the turn level: the orchestrator logs sink failures but does not fail the
// turn over them.
type ArtifactSink interface {
	SaveImage(sessionID string, data []byte) (string, error)
	SaveModel(sessionID string, data []byte) (string, error)
	SavePreview(sessionID string, data []byte) (string, error)
}

// Ensure *FSArtifactSink implements ArtifactSink at compile time.
var _ ArtifactSink = (*FSArtifactSink)(nil)

// FSArtifactSink writes artifacts under a single output directory, named by
// session ID so reruns within one session overwrite their predecessors.
type FSArtifactSink struct {
	dir string
}

// NewFSArtifactSink creates the output directory if needed.
func NewFSArtifactSink(dir string) (*FSArtifactSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: failed to create output directory: %w", err)
	}
	return &FSArtifactSink{dir: dir}, nil
}

// SaveImage writes the intermediate PNG and returns its path.
func (s *FSArtifactSink) SaveImage(sessionID string, data []byte) (string, error) {
	return s.write(fmt.Sprintf("output_%s.png", sessionID), data)
}

// SaveModel writes the generated GLB and returns its path.
func (s *FSArtifactSink) SaveModel(sessionID string, data []byte) (string, error) {
	return s.write(fmt.Sprintf("output_%s.glb", sessionID), data)
}

// SavePreview writes the preview MP4 and returns its path.
func (s *FSArtifactSink) SavePreview(sessionID string, data []byte) (string, error) {
	return s.write(fmt.Sprintf("preview_%s.mp4", sessionID), data)
}

func (s *FSArtifactSink) write(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("pipeline: failed to write %s: %w", name, err)
	}
	return path, nil
}
