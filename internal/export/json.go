package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/sim"
	"github.com/san-kum/tether/internal/storage"
	"github.com/san-kum/tether/internal/tether"
)

type SegmentData struct {
	ID             int          `json:"id"`
	Length         float64      `json:"length"`
	SimulationTime float64      `json:"simulation_time"`
	Particles      []mgl64.Vec3 `json:"particles"`
}

type CableData struct {
	Name     string        `json:"name"`
	Length   float64       `json:"length"`
	Guide    []mgl64.Vec3  `json:"guide,omitempty"`
	Segments []SegmentData `json:"segments,omitempty"`
	Chain    []mgl64.Vec3  `json:"chain"`
}

type ExportData struct {
	Scene   string             `json:"scene"`
	RunID   string             `json:"run_id,omitempty"`
	Options sim.Options        `json:"options"`
	Cables  []CableData        `json:"cables"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// FromScene captures the current state of every cable in scene.
func FromScene(name string, scene *tether.Scene) ExportData {
	data := ExportData{Scene: name}
	for i, c := range scene.Ordered() {
		if i == 0 {
			data.Options = c.Options()
		}
		m := c.Model()
		cd := CableData{Name: c.Name(), Length: m.Length(), Chain: m.ParticleLocations()}
		for _, p := range c.Guide().Points() {
			cd.Guide = append(cd.Guide, p.Location)
		}
		for _, seg := range m.Segments {
			sd := SegmentData{ID: seg.ID, Length: seg.Length, SimulationTime: seg.SimulationTime}
			for _, p := range seg.Particles {
				sd.Particles = append(sd.Particles, p.Position)
			}
			cd.Segments = append(cd.Segments, sd)
		}
		data.Cables = append(data.Cables, cd)
	}
	return data
}

// FromRun rebuilds the export of a stored run. Per cable metrics are keyed
// as cable/metric.
func FromRun(meta *storage.RunMetadata, records []storage.ParticleRecord) ExportData {
	data := ExportData{Scene: meta.Scene, RunID: meta.ID, Options: meta.Options}
	for _, cm := range meta.Cables {
		data.Cables = append(data.Cables, CableData{
			Name:   cm.Name,
			Length: cm.Length,
			Chain:  storage.Chain(records, cm.Name),
		})
		for k, v := range cm.Metrics {
			if data.Metrics == nil {
				data.Metrics = make(map[string]float64)
			}
			data.Metrics[cm.Name+"/"+k] = v
		}
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
