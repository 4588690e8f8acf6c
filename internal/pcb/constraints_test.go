package pcb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/circuit"
)

func smallGraph() *circuit.Graph {
	return &circuit.Graph{
		Nodes: []circuit.Node{
			{ID: "U1", Type: circuit.TypeMCU, PartNumber: "STM32L432KC",
				Properties: circuit.Properties{"clock_mhz": 80.0}},
			{ID: "S1", Type: circuit.TypeSensor, PartNumber: "BME280"},
			{ID: "C1", Type: circuit.TypePassive, PartNumber: "GRM188R71C104KA01D",
				Properties: circuit.Properties{"purpose": "decoupling capacitor"}},
		},
		Edges: []circuit.Edge{
			{ID: "E1", SourceNode: "U1", SourcePin: "SDA", TargetNode: "S1", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
			{ID: "E2", SourceNode: "U1", SourcePin: "GND", TargetNode: "GND", TargetPin: "GND", NetName: "GND", SignalType: circuit.SignalGround},
		},
		GroundNet:   "GND",
		PowerSource: map[string]any{"type": "battery", "voltage": 3.7},
	}
}

func TestGenerateConstraints_LowPower(t *testing.T) {
	c := GenerateConstraints(smallGraph())

	assert.Equal(t, "6.0 mil (0.15 mm)", c.TraceWidth)
	assert.Equal(t, 2, c.LayerCount)
	assert.True(t, c.GroundPlane)
	require.Len(t, c.ThermalNotes, 1)
	assert.Contains(t, c.ThermalNotes[0], "Low power")
}

func TestGenerateConstraints_HighSpeedNeedsFourLayers(t *testing.T) {
	g := smallGraph()
	g.Nodes[0].Properties["clock_mhz"] = 240.0
	c := GenerateConstraints(g)
	assert.Equal(t, 4, c.LayerCount)
}

func TestGenerateConstraints_ThermalNotes(t *testing.T) {
	g := smallGraph()
	g.PowerSource = map[string]any{"type": "12V DC", "voltage": 12.0}
	g.Nodes = append(g.Nodes,
		circuit.Node{ID: "REG1", Type: circuit.TypeRegulator,
			Properties: circuit.Properties{"vout": 3.3, "dropout_v": 1.1}},
		circuit.Node{ID: "M1", Type: circuit.TypeActuator},
		circuit.Node{ID: "M2", Type: circuit.TypeActuator},
		circuit.Node{ID: "M3", Type: circuit.TypeActuator},
	)

	c := GenerateConstraints(g)

	var highCurrent, dissipation bool
	for _, n := range c.ThermalNotes {
		if strings.Contains(n, "High current") {
			highCurrent = true
		}
		if strings.Contains(n, "REG1") {
			dissipation = true
		}
	}
	assert.True(t, highCurrent, "685mA draw should flag wide traces")
	assert.True(t, dissipation, "linear regulator burning >0.25W should be flagged")
}

func TestTraceWidthMils_Floor(t *testing.T) {
	assert.Equal(t, 6.0, traceWidthMils(0.05, 1.0, true))
	assert.Greater(t, traceWidthMils(3.0, 1.0, true), 6.0)
	// internal layers run hotter and need wider traces
	assert.Greater(t, traceWidthMils(3.0, 1.0, false), traceWidthMils(3.0, 1.0, true))
}
