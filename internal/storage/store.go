package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	particlesFile = "particles.csv"
)

var particleHeader = []string{"cable", "segment", "index", "id", "free", "x", "y", "z"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type CableMetadata struct {
	Name      string             `json:"name"`
	Segments  int                `json:"segments"`
	Particles int                `json:"particles"`
	Length    float64            `json:"length"`
	Hash      string             `json:"hash"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

type RunMetadata struct {
	ID        string          `json:"id"`
	Scene     string          `json:"scene"`
	Timestamp time.Time       `json:"timestamp"`
	Options   sim.Options     `json:"options"`
	Cables    []CableMetadata `json:"cables"`
}

// CableRun is one settled cable handed to Save.
type CableRun struct {
	Name    string
	Model   *model.Model
	Metrics map[string]float64
}

type Run struct {
	Scene   string
	Options sim.Options
	Cables  []CableRun
}

// ParticleRecord is one row of particles.csv. Both copies of a join
// particle are stored and share an ID.
type ParticleRecord struct {
	Cable    string
	Segment  int
	Index    int
	ID       int
	Free     bool
	Position mgl64.Vec3
}

func (s *Store) Save(run Run) (string, error) {
	runID := fmt.Sprintf("%s_%s", run.Scene, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scene:     run.Scene,
		Timestamp: time.Now(),
		Options:   run.Options,
	}
	for _, c := range run.Cables {
		meta.Cables = append(meta.Cables, CableMetadata{
			Name:      c.Name,
			Segments:  c.Model.NumSegments(),
			Particles: c.Model.NumParticles(),
			Length:    c.Model.Length(),
			Hash:      strconv.FormatUint(c.Model.Hash(), 16),
			Metrics:   c.Metrics,
		})
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, particlesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteParticles(csvFile, run.Cables); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteParticles writes the particles.csv rows of every cable to w.
func WriteParticles(w io.Writer, cables []CableRun) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(particleHeader); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, c := range cables {
		for _, seg := range c.Model.Segments {
			for i, p := range seg.Particles {
				row := []string{
					c.Name,
					strconv.Itoa(seg.ID),
					strconv.Itoa(i),
					strconv.Itoa(p.ID),
					strconv.FormatBool(p.Free),
					format(p.Position[0]),
					format(p.Position[1]),
					format(p.Position[2]),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns every saved run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadParticles(runID string) ([]ParticleRecord, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, particlesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(particleHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []ParticleRecord{}, nil
	}

	out := make([]ParticleRecord, 0, len(records)-1)
	for i, rec := range records[1:] {
		p, err := parseParticle(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", particlesFile, i+2, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseParticle(rec []string) (ParticleRecord, error) {
	p := ParticleRecord{Cable: rec[0]}
	var err error
	if p.Segment, err = strconv.Atoi(rec[1]); err != nil {
		return p, err
	}
	if p.Index, err = strconv.Atoi(rec[2]); err != nil {
		return p, err
	}
	if p.ID, err = strconv.Atoi(rec[3]); err != nil {
		return p, err
	}
	if p.Free, err = strconv.ParseBool(rec[4]); err != nil {
		return p, err
	}
	for k := 0; k < 3; k++ {
		if p.Position[k], err = strconv.ParseFloat(rec[5+k], 64); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Chain returns the de-duplicated positions of one cable in order.
func Chain(records []ParticleRecord, cable string) []mgl64.Vec3 {
	var out []mgl64.Vec3
	lastID := -1
	for _, r := range records {
		if r.Cable != cable {
			continue
		}
		if len(out) > 0 && r.ID == lastID {
			continue
		}
		out = append(out, r.Position)
		lastID = r.ID
	}
	return out
}

// Cables lists the cable names of records in first-seen order.
func Cables(records []ParticleRecord) []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.Cable] {
			seen[r.Cable] = true
			names = append(names, r.Cable)
		}
	}
	return names
}
