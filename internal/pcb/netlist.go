package pcb

import (
	"fmt"
	"strings"
	"time"

	"github.com/circuit-studio/engine/internal/circuit"
)

var defaultFootprints = map[string]string{
	circuit.TypeMCU:        "Package_QFP:LQFP-48_7x7mm_P0.5mm",
	circuit.TypeSensor:     "Package_LGA:LGA-8_3x3mm_P0.5mm",
	circuit.TypeRegulator:  "Package_TO_SOT_SMD:SOT-223-3_TabPin2",
	circuit.TypeProtection: "Diode_SMD:D_SOD-323",
	circuit.TypeConnector:  "Connector_PinHeader_2.54mm:PinHeader_1x04_P2.54mm_Vertical",
}

const (
	footprintCap0402 = "Capacitor_SMD:C_0402_1005Metric"
	footprintRes0402 = "Resistor_SMD:R_0402_1005Metric"
	footprintCap0805 = "Capacitor_SMD:C_0805_2012Metric"
)

var netlistRefPrefixes = map[string]string{
	circuit.TypeMCU:        "U",
	circuit.TypeSensor:     "U",
	circuit.TypeRegulator:  "U",
	circuit.TypePassive:    "C",
	circuit.TypeProtection: "D",
	circuit.TypeConnector:  "J",
}

func netlistRef(n *circuit.Node, index int) string {
	prefix, ok := netlistRefPrefixes[n.Type]
	if !ok {
		prefix = "X"
	}
	if n.Type == circuit.TypePassive {
		purpose := strings.ToLower(n.Properties.String("purpose", ""))
		switch {
		case strings.Contains(purpose, "resistor") || strings.Contains(purpose, "pull-up"):
			prefix = "R"
		case strings.Contains(purpose, "capacitor") || strings.Contains(purpose, "decoupling"):
			prefix = "C"
		}
	}
	return fmt.Sprintf("%s%d", prefix, index+1)
}

func footprint(n *circuit.Node) string {
	if pkg := n.Properties.String("package", ""); pkg != "" {
		return pkg
	}
	if n.Type == circuit.TypePassive {
		purpose := strings.ToLower(n.Properties.String("purpose", ""))
		if strings.Contains(purpose, "resistor") || strings.Contains(purpose, "pull-up") {
			return footprintRes0402
		}
		return footprintCap0402
	}
	if fp, ok := defaultFootprints[n.Type]; ok {
		return fp
	}
	return footprintCap0805
}

// NetPin is one (component, pin) attachment on a net.
type NetPin struct {
	Ref string `json:"ref"`
	Pin string `json:"pin"`
}

// Net is a named electrical connection with all attached pins. Code 0
// is reserved for unconnected.
type Net struct {
	Name string   `json:"name"`
	Code int      `json:"code"`
	Pins []NetPin `json:"pins"`
}

// RefMap maps node IDs to reference designators in node order.
func RefMap(g *circuit.Graph) map[string]string {
	refs := make(map[string]string, len(g.Nodes))
	for i := range g.Nodes {
		refs[g.Nodes[i].ID] = netlistRef(&g.Nodes[i], i)
	}
	return refs
}

// ExtractNets groups edges by net name and collects the connected pins,
// preserving first-seen net order.
func ExtractNets(g *circuit.Graph) []Net {
	refs := RefMap(g)

	index := map[string]int{}
	var nets []Net
	for _, e := range g.Edges {
		i, ok := index[e.NetName]
		if !ok {
			i = len(nets)
			index[e.NetName] = i
			nets = append(nets, Net{Name: e.NetName, Code: i + 1})
		}

		srcRef, tgtRef := e.SourceNode, e.TargetNode
		if r, ok := refs[e.SourceNode]; ok {
			srcRef = r
		}
		if r, ok := refs[e.TargetNode]; ok {
			tgtRef = r
		}

		for _, p := range []NetPin{{Ref: srcRef, Pin: e.SourcePin}, {Ref: tgtRef, Pin: e.TargetPin}} {
			dup := false
			for _, existing := range nets[i].Pins {
				if existing == p {
					dup = true
					break
				}
			}
			if !dup {
				nets[i].Pins = append(nets[i].Pins, p)
			}
		}
	}
	return nets
}

// GenerateNetlist renders the graph as a KiCad 6+ S-expression netlist.
func GenerateNetlist(g *circuit.Graph) string {
	var b strings.Builder
	refs := RefMap(g)
	nets := ExtractNets(g)
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	b.WriteString("(export (version D)\n")

	b.WriteString("  (design\n")
	b.WriteString("    (source \"Circuit Studio\")\n")
	fmt.Fprintf(&b, "    (date %q)\n", timestamp)
	b.WriteString("    (tool \"Circuit Studio PCB Generator 1.0\")\n")
	b.WriteString("  )\n")

	b.WriteString("  (components\n")
	for i := range g.Nodes {
		n := &g.Nodes[i]
		b.WriteString("    (comp\n")
		fmt.Fprintf(&b, "      (ref %q)\n", refs[n.ID])
		fmt.Fprintf(&b, "      (value %q)\n", n.PartNumber)
		fmt.Fprintf(&b, "      (footprint %q)\n", footprint(n))
		b.WriteString("      (fields\n")
		fmt.Fprintf(&b, "        (field (name \"Type\") %q)\n", n.Type)
		fmt.Fprintf(&b, "        (field (name \"InternalID\") %q)\n", n.ID)
		b.WriteString("      )\n")
		b.WriteString("    )\n")
	}
	b.WriteString("  )\n")

	b.WriteString("  (nets\n")
	b.WriteString("    (net (code 0) (name \"unconnected\"))\n")
	for _, net := range nets {
		fmt.Fprintf(&b, "    (net (code %d) (name %q))\n", net.Code, net.Name)
	}
	b.WriteString("  )\n")

	b.WriteString("  (net_classes\n")
	b.WriteString("    (net_class Default\n")
	b.WriteString("      (clearance 0.15)\n")
	b.WriteString("      (trace_width 0.15)\n")
	b.WriteString("      (via_dia 0.6)\n")
	b.WriteString("      (via_drill 0.3)\n")
	for _, net := range nets {
		fmt.Fprintf(&b, "      (add_net %q)\n", net.Name)
	}
	b.WriteString("    )\n")
	b.WriteString("  )\n")

	b.WriteString(")\n")
	return b.String()
}
