package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point2D is a position on a floor plan, in meters.
type Point2D struct {
	X float64
	Y float64
}

// Point3D is a position in the facility, in meters.
type Point3D struct {
	X float64
	Y float64
	Z float64
}

// UnmarshalYAML decodes a flow sequence like [1.5, 2.0].
func (p *Point2D) UnmarshalYAML(value *yaml.Node) error {
	var coords []float64
	if err := value.Decode(&coords); err != nil {
		return fmt.Errorf("decode 2d point: %w", err)
	}
	if len(coords) != 2 {
		return fmt.Errorf("2d point needs exactly 2 coordinates, got %d", len(coords))
	}
	p.X, p.Y = coords[0], coords[1]
	return nil
}

// UnmarshalYAML decodes a flow sequence like [1.5, 2.0, 0.0].
func (p *Point3D) UnmarshalYAML(value *yaml.Node) error {
	var coords []float64
	if err := value.Decode(&coords); err != nil {
		return fmt.Errorf("decode 3d point: %w", err)
	}
	if len(coords) != 3 {
		return fmt.Errorf("3d point needs exactly 3 coordinates, got %d", len(coords))
	}
	p.X, p.Y, p.Z = coords[0], coords[1], coords[2]
	return nil
}

// Device is a tracked beacon with a stable id and a display name.
type Device struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Room is a named polygon on a floor plan.
type Room struct {
	Name   string    `yaml:"name"`
	Points []Point2D `yaml:"points"`
}

// Floor describes one level of the facility with its bounding box and rooms.
type Floor struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Bounds []Point3D `yaml:"bounds"`
	Rooms  []Room    `yaml:"rooms"`
}

// Node is a fixed ESPresense base station.
type Node struct {
	Name   string   `yaml:"name"`
	Point  Point3D  `yaml:"point"`
	Floors []string `yaml:"floors"`
}

// Topology is the full static facility description.
type Topology struct {
	Devices []Device `yaml:"devices"`
	Floors  []Floor  `yaml:"floors"`
	Nodes   []Node   `yaml:"nodes"`
}

// Load reads and parses a topology YAML file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Parse(data)
}

// Parse parses topology YAML.
func Parse(data []byte) (*Topology, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("parse topology yaml: %w", err)
	}
	for _, f := range topo.Floors {
		if len(f.Bounds) != 2 {
			return nil, fmt.Errorf("floor %q: bounds needs exactly 2 points, got %d", f.ID, len(f.Bounds))
		}
	}
	return &topo, nil
}

// Registry returns the immutable device id to device lookup.
func (t *Topology) Registry() *Registry {
	byID := make(map[string]Device, len(t.Devices))
	for _, d := range t.Devices {
		byID[d.ID] = d
	}
	return &Registry{byID: byID}
}

// Registry maps device ids to devices. Built once at startup, read-only
// afterwards, so it is safe to use from any goroutine without locking.
type Registry struct {
	byID map[string]Device
}

// Lookup returns the device for an id.
func (r *Registry) Lookup(id string) (Device, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.byID)
}
