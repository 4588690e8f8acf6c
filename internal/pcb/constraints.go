// Package pcb turns a validated circuit graph into manufacturing
// output: IPC-2221 design rules, a KiCad netlist, and a Gerber export
// job specification.
package pcb

import (
	"fmt"
	"math"

	"github.com/circuit-studio/engine/internal/circuit"
)

// IPC-2221 trace width formula constants, external layers.
const (
	ipcKInternal = 0.024
	ipcKExternal = 0.048
	ipcB         = 0.44
	ipcC         = 0.725
)

// Constraints are the PCB design rules derived from the circuit.
type Constraints struct {
	TraceWidth      string   `json:"trace_width"`
	CopperThickness string   `json:"copper_thickness"`
	LayerCount      int      `json:"layer_count"`
	Clearance       string   `json:"clearance"`
	GroundPlane     bool     `json:"ground_plane"`
	ThermalNotes    []string `json:"thermal_notes"`
}

// estimateMaxCurrentMA sums typical draw per component class. Crude but
// good enough to size power traces.
func estimateMaxCurrentMA(g *circuit.Graph) float64 {
	total := 0.0
	for i := range g.Nodes {
		switch g.Nodes[i].Type {
		case circuit.TypeMCU:
			total += 80
		case circuit.TypeSensor:
			total += 5
		case circuit.TypeActuator:
			total += 200
		}
	}
	return total
}

// traceWidthMils applies IPC-2221 for a 10C rise, floored at 6 mil.
func traceWidthMils(currentA, copperOz float64, external bool) float64 {
	k := ipcKInternal
	if external {
		k = ipcKExternal
	}
	thicknessMils := copperOz * 1.378
	area := math.Pow(currentA/(k*math.Pow(10.0, ipcB)), 1/ipcC)
	width := area / thicknessMils
	if width < 6.0 {
		return 6.0
	}
	return width
}

func recommendLayerCount(g *circuit.Graph) int {
	highSpeed := false
	for i := range g.Nodes {
		if g.Nodes[i].Properties.Float("clock_mhz", 0) > 100 {
			highSpeed = true
			break
		}
	}
	if highSpeed || len(g.Nodes) > 30 || len(g.Edges) > 60 {
		return 4
	}
	return 2
}

// GenerateConstraints derives manufacturing design rules for a circuit.
func GenerateConstraints(g *circuit.Graph) *Constraints {
	maxMA := estimateMaxCurrentMA(g)
	maxA := maxMA / 1000.0
	copperOz := 1.0
	if maxA >= 1.0 {
		copperOz = 2.0
	}
	traceWidth := traceWidthMils(maxA, copperOz, true)
	layerCount := recommendLayerCount(g)

	var notes []string
	if maxA > 0.5 {
		notes = append(notes, fmt.Sprintf("High current (%.0fmA): use wider power traces", maxMA))
	}
	sourceV := g.SupplyVoltage()
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type != circuit.TypeRegulator {
			continue
		}
		vout := n.Properties.Float("vout", 0)
		dissipation := (sourceV - vout) * maxA
		if dissipation > 0.25 {
			notes = append(notes, fmt.Sprintf("%s: dissipates ~%.2fW, add thermal relief pad or heatsink", n.ID, dissipation))
		}
	}
	if len(notes) == 0 {
		notes = append(notes, "Low power design, no special thermal considerations")
	}

	return &Constraints{
		TraceWidth:      fmt.Sprintf("%.1f mil (%.2f mm)", traceWidth, traceWidth*0.0254),
		CopperThickness: fmt.Sprintf("%g oz (%.0f um)", copperOz, copperOz*35),
		LayerCount:      layerCount,
		Clearance:       "6 mil (0.15 mm) minimum",
		GroundPlane:     layerCount >= 2,
		ThermalNotes:    notes,
	}
}
