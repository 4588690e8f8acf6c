package pcb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/circuit"
)

func netlistGraph() *circuit.Graph {
	return &circuit.Graph{
		Nodes: []circuit.Node{
			{ID: "U1", Type: circuit.TypeMCU, PartNumber: "ESP32-WROOM-32E"},
			{ID: "S1", Type: circuit.TypeSensor, PartNumber: "BME280"},
			{ID: "C1", Type: circuit.TypePassive, PartNumber: "GRM188R71C104KA01D",
				Properties: circuit.Properties{"purpose": "decoupling capacitor"}},
			{ID: "R1", Type: circuit.TypePassive, PartNumber: "RC0402FR-074K7L",
				Properties: circuit.Properties{"purpose": "I2C pull-up resistor"}},
		},
		Edges: []circuit.Edge{
			{ID: "E1", SourceNode: "U1", SourcePin: "SDA", TargetNode: "S1", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
			{ID: "E2", SourceNode: "R1", SourcePin: "P2", TargetNode: "U1", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
			{ID: "E3", SourceNode: "U1", SourcePin: "GND", TargetNode: "GND", TargetPin: "GND", NetName: "GND", SignalType: circuit.SignalGround},
		},
		GroundNet: "GND",
	}
}

func TestRefMap(t *testing.T) {
	refs := RefMap(netlistGraph())
	assert.Equal(t, "U1", refs["U1"])
	assert.Equal(t, "U2", refs["S1"])
	assert.Equal(t, "C3", refs["C1"])
	assert.Equal(t, "R4", refs["R1"])
}

func TestExtractNets(t *testing.T) {
	nets := ExtractNets(netlistGraph())
	require.Len(t, nets, 2)

	sda := nets[0]
	assert.Equal(t, "I2C_SDA", sda.Name)
	assert.Equal(t, 1, sda.Code)
	// U1.SDA appears in two edges but must be listed once
	assert.Equal(t, []NetPin{
		{Ref: "U1", Pin: "SDA"},
		{Ref: "U2", Pin: "SDA"},
		{Ref: "R4", Pin: "P2"},
	}, sda.Pins)

	gnd := nets[1]
	assert.Equal(t, "GND", gnd.Name)
	assert.Equal(t, 2, gnd.Code)
}

func TestGenerateNetlist(t *testing.T) {
	out := GenerateNetlist(netlistGraph())

	assert.True(t, strings.HasPrefix(out, "(export (version D)\n"))
	assert.Contains(t, out, `(ref "U1")`)
	assert.Contains(t, out, `(value "ESP32-WROOM-32E")`)
	assert.Contains(t, out, `(footprint "Resistor_SMD:R_0402_1005Metric")`)
	assert.Contains(t, out, `(net (code 0) (name "unconnected"))`)
	assert.Contains(t, out, `(net (code 1) (name "I2C_SDA"))`)
	assert.Contains(t, out, `(add_net "GND")`)
	assert.Contains(t, out, `(field (name "InternalID") "C1")`)

	// balanced s-expression
	assert.Equal(t, strings.Count(out, "("), strings.Count(out, ")"))
}
