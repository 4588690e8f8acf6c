package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/circuit"
)

// healthyGraph builds a small circuit that passes every check: a
// grounded, decoupled MCU and sensor on a 3.3V rail with I2C pull-ups.
func healthyGraph() *circuit.Graph {
	return &circuit.Graph{
		Nodes: []circuit.Node{
			mcuNode("MCU1"),
			sensorNode("SENSOR1", 1.8, 3.6),
			regulatorNode(3.3, 0.3, 2.3),
			capNode("C1"),
			capNode("C2"),
			capNode("C3"),
			pullupNode("R1", "I2C pull-up SDA"),
			pullupNode("R2", "I2C pull-up SCL"),
		},
		Edges: []circuit.Edge{
			gndEdge("MCU1", "GND"),
			gndEdge("SENSOR1", "GND"),
			gndEdge("REG1", "GND"),
			{ID: "p1", SourceNode: "REG1", SourcePin: "VOUT", TargetNode: "MCU1", TargetPin: "VCC", NetName: "3V3", SignalType: circuit.SignalPower},
			{ID: "p2", SourceNode: "3V3", SourcePin: "P", TargetNode: "SENSOR1", TargetPin: "VCC", NetName: "3V3", SignalType: circuit.SignalPower},
			{ID: "c1", SourceNode: "C1", SourcePin: "P1", TargetNode: "MCU1", TargetPin: "VCC", NetName: "3V3", SignalType: circuit.SignalPower},
			{ID: "c2", SourceNode: "C2", SourcePin: "P1", TargetNode: "SENSOR1", TargetPin: "VCC", NetName: "3V3", SignalType: circuit.SignalPower},
			{ID: "c3", SourceNode: "C3", SourcePin: "P1", TargetNode: "REG1", TargetPin: "VIN", NetName: "VIN", SignalType: circuit.SignalPower},
			{ID: "s1", SourceNode: "MCU1", SourcePin: "SDA", TargetNode: "SENSOR1", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
			{ID: "s2", SourceNode: "MCU1", SourcePin: "SCL", TargetNode: "SENSOR1", TargetPin: "SCL", NetName: "I2C_SCL", SignalType: circuit.SignalSignal},
			{ID: "r1", SourceNode: "R1", SourcePin: "P2", TargetNode: "MCU1", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
			{ID: "r2", SourceNode: "R2", SourcePin: "P2", TargetNode: "MCU1", TargetPin: "SCL", NetName: "I2C_SCL", SignalType: circuit.SignalSignal},
		},
		PowerRails: []circuit.PowerRail{
			{Name: "3V3", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{"MCU1", "SENSOR1"}},
		},
		GroundNet:   "GND",
		PowerSource: map[string]any{"voltage": 5.0},
	}
}

func TestValidateHealthyGraph(t *testing.T) {
	res := Validate(healthyGraph())
	assert.Equal(t, StatusValid, res.Status)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 7, res.ChecksTotal)
	assert.Equal(t, 7, res.ChecksPassed)
}

func TestValidateWarningsDoNotBlockValidStatus(t *testing.T) {
	g := healthyGraph()
	// Hang an actuator off a GPIO: warning only.
	g.Nodes = append(g.Nodes, circuit.Node{ID: "M1", Type: circuit.TypeActuator, PartNumber: "RELAY"})
	g.Edges = append(g.Edges,
		circuit.Edge{ID: "a1", SourceNode: "MCU1", SourcePin: "GPIO0", TargetNode: "M1", TargetPin: "IN", NetName: "CTRL", SignalType: circuit.SignalSignal},
		gndEdge("M1", "GND"),
	)

	res := Validate(g)
	assert.Equal(t, StatusValid, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, CodeGPIOOvercurrentRisk, res.Warnings[0].Code)
	// The GPIO check produced only a warning, so it still passes.
	assert.Equal(t, res.ChecksTotal, res.ChecksPassed)
}

func TestValidatePartitionsErrorsAndWarnings(t *testing.T) {
	g := &circuit.Graph{
		Nodes: []circuit.Node{mcuNode("MCU1")},
		Edges: []circuit.Edge{
			{ID: "sda", SourceNode: "MCU1", SourcePin: "SDA", TargetNode: "GHOST", TargetPin: "SDA", NetName: "I2C_SDA", SignalType: circuit.SignalSignal},
		},
	}
	res := Validate(g)

	assert.Equal(t, StatusInvalid, res.Status)
	seen := map[string]bool{}
	for _, is := range res.Errors {
		assert.Equal(t, SeverityError, is.Severity)
		seen[is.Code+is.Message] = true
	}
	for _, is := range res.Warnings {
		assert.NotEqual(t, SeverityError, is.Severity)
		assert.False(t, seen[is.Code+is.Message], "issue appears in both partitions")
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	g := healthyGraph()
	// Break it a few ways so several checks fire.
	g.PowerRails[0].Consumers = append(g.PowerRails[0].Consumers, "GHOST")
	g.PowerSource["voltage"] = 2.0

	a := Validate(g)
	b := Validate(g)
	assert.Equal(t, a, b)
}

func TestValidateSubsetOfChecks(t *testing.T) {
	g := &circuit.Graph{Nodes: []circuit.Node{mcuNode("MCU1")}}

	res := Validate(g, ChecksByName([]string{CheckNameGround})...)
	assert.Equal(t, 1, res.ChecksTotal)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeMissingGround, res.Errors[0].Code)

	// Decoupling-only run sees the same graph differently.
	res = Validate(g, ChecksByName([]string{CheckNameDecoupling})...)
	assert.Equal(t, StatusValid, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, CodeMissingDecoupling, res.Warnings[0].Code)
}

func TestChecksByNamePreservesRegistryOrder(t *testing.T) {
	checks := ChecksByName([]string{CheckNamePullups, CheckNameVoltage, "bogus"})
	require.Len(t, checks, 2)
	assert.Equal(t, CheckNameVoltage, checks[0].Name)
	assert.Equal(t, CheckNamePullups, checks[1].Name)
}

func TestValidateIsolatedMCUScenario(t *testing.T) {
	// An MCU with no edges: one missing-ground error, one aggregated
	// missing-decoupling warning naming it.
	g := &circuit.Graph{Nodes: []circuit.Node{mcuNode("MCU1")}}
	res := Validate(g)

	assert.Equal(t, StatusInvalid, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeMissingGround, res.Errors[0].Code)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, CodeMissingDecoupling, res.Warnings[0].Code)
	assert.Equal(t, []string{"MCU1"}, res.Warnings[0].NodeIDs)
	assert.Equal(t, 6, res.ChecksPassed)
	assert.Equal(t, 7, res.ChecksTotal)
}
