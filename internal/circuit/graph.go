package circuit

// Node type vocabulary. The type drives which validation checks apply.
const (
	TypeMCU        = "mcu"
	TypeSensor     = "sensor"
	TypeRegulator  = "regulator"
	TypePassive    = "passive"
	TypeProtection = "protection"
	TypeActuator   = "actuator"
	TypeConnector  = "connector"
)

// Edge signal types.
const (
	SignalPower  = "power"
	SignalSignal = "signal"
	SignalGround = "ground"
)

// DefaultGroundNet is the net name treated as ground when a graph does
// not declare one.
const DefaultGroundNet = "GND"

// ICTypes is the set of node types that require ground and decoupling.
var ICTypes = map[string]bool{
	TypeMCU:       true,
	TypeSensor:    true,
	TypeRegulator: true,
}

// Properties is an open bag of electrical characteristics keyed by
// string. Values are scalars (numbers, strings, booleans); checks read
// specific keys and supply their own defaults for absent ones.
type Properties map[string]any

// Float reads a numeric property, accepting any JSON-decoded numeric
// representation. Returns def when the key is absent or non-numeric.
func (p Properties) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// String reads a string property, returning def when absent.
func (p Properties) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Bool reads a boolean property, returning def when absent.
func (p Properties) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Node is one electrical component instance in a circuit graph.
type Node struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	PartNumber string     `json:"part_number"`
	Properties Properties `json:"properties"`
	Pins       []string   `json:"pins"`
}

// Edge is a directed electrical connection between two pins. Node
// references are not guaranteed to resolve; the validator reports
// unresolved references as issues rather than failing.
type Edge struct {
	ID         string `json:"id"`
	SourceNode string `json:"source_node"`
	SourcePin  string `json:"source_pin"`
	TargetNode string `json:"target_node"`
	TargetPin  string `json:"target_pin"`
	NetName    string `json:"net_name"`
	SignalType string `json:"signal_type"`
}

// PowerRail is a named voltage source with an explicit consumer list.
type PowerRail struct {
	Name       string   `json:"name"`
	Voltage    float64  `json:"voltage"`
	SourceNode string   `json:"source_node"`
	Consumers  []string `json:"consumers"`
}

// Graph is the aggregate circuit representation shared by validation,
// correction, and the export generators.
type Graph struct {
	Nodes      []Node         `json:"nodes"`
	Edges      []Edge         `json:"edges"`
	PowerRails []PowerRail    `json:"power_rails"`
	GroundNet  string         `json:"ground_net"`
	PowerSource map[string]any `json:"power_source"`
}

// Ground returns the graph's ground net name, defaulting to GND.
func (g *Graph) Ground() string {
	if g.GroundNet == "" {
		return DefaultGroundNet
	}
	return g.GroundNet
}

// SupplyVoltage returns the raw upstream supply voltage declared in
// power_source, or 0 when unknown.
func (g *Graph) SupplyVoltage() float64 {
	return Properties(g.PowerSource).Float("voltage", 0)
}

// NodeMap builds an id -> node index for O(1) lookups.
func (g *Graph) NodeMap() map[string]*Node {
	m := make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		m[g.Nodes[i].ID] = &g.Nodes[i]
	}
	return m
}

// HasNode reports whether a node with the given id exists in the graph.
// Rail and net names are not considered.
func (g *Graph) HasNode(id string) bool {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph. The correction engine
// mutates only clones so the caller's graph stays intact for diffing.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		GroundNet: g.GroundNet,
	}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			cp := n
			if n.Properties != nil {
				cp.Properties = make(Properties, len(n.Properties))
				for k, v := range n.Properties {
					cp.Properties[k] = v
				}
			}
			if n.Pins != nil {
				cp.Pins = append([]string(nil), n.Pins...)
			}
			out.Nodes[i] = cp
		}
	}
	if g.Edges != nil {
		out.Edges = append([]Edge(nil), g.Edges...)
	}
	if g.PowerRails != nil {
		out.PowerRails = make([]PowerRail, len(g.PowerRails))
		for i, r := range g.PowerRails {
			cp := r
			if r.Consumers != nil {
				cp.Consumers = append([]string(nil), r.Consumers...)
			}
			out.PowerRails[i] = cp
		}
	}
	if g.PowerSource != nil {
		out.PowerSource = make(map[string]any, len(g.PowerSource))
		for k, v := range g.PowerSource {
			out.PowerSource[k] = v
		}
	}
	return out
}
