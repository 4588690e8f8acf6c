package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/validation"
)

func TestRunLoopReturnsImmediatelyOnValidGraph(t *testing.T) {
	g := &circuit.Graph{
		Nodes: []circuit.Node{{
			ID: "C1", Type: circuit.TypePassive, PartNumber: "X",
		}},
	}

	out := RunLoop(g, DefaultMaxIterations)
	assert.Equal(t, validation.StatusValid, out.Validation.Status)
	assert.Equal(t, 1, out.Iterations)
	assert.Empty(t, out.Corrections)
	assert.Same(t, g, out.Graph)
}

func TestRunLoopConvergesOnFixableIssues(t *testing.T) {
	// Only fixable issues present: missing ground (error) and missing
	// decoupling (warning). One correction pass must clear the errors.
	g := &circuit.Graph{
		Nodes: []circuit.Node{{
			ID:         "MCU1",
			Type:       circuit.TypeMCU,
			PartNumber: "ESP32-C3",
			Pins:       []string{"VCC", "GND"},
		}},
		PowerRails: []circuit.PowerRail{
			{Name: "3V3", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{}},
		},
		GroundNet: "GND",
	}

	out := RunLoop(g, DefaultMaxIterations)

	assert.Equal(t, validation.StatusValid, out.Validation.Status)
	assert.Empty(t, out.Validation.Errors)
	assert.NotEmpty(t, out.Corrections)
	assert.Less(t, out.Iterations, DefaultMaxIterations, "loop should exit before exhausting the budget")

	// The caller's graph stays untouched for diffing.
	assert.Empty(t, g.Edges)
}

func TestRunLoopStopsAtBudgetOnUnfixableIssues(t *testing.T) {
	// A voltage mismatch has no fixer, so the loop can never converge.
	g := &circuit.Graph{
		Nodes: []circuit.Node{{
			ID:         "SENSOR1",
			Type:       circuit.TypeSensor,
			PartNumber: "DHT11",
			Properties: circuit.Properties{"operating_voltage_min": 4.5, "operating_voltage_max": 5.5},
		}},
		Edges: []circuit.Edge{{
			ID: "g1", SourceNode: "SENSOR1", SourcePin: "GND",
			TargetNode: "GND", TargetPin: "GND", NetName: "GND", SignalType: circuit.SignalGround,
		}},
		PowerRails: []circuit.PowerRail{
			{Name: "3V3", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{"SENSOR1"}},
		},
		GroundNet: "GND",
	}

	out := RunLoop(g, DefaultMaxIterations)

	assert.Equal(t, validation.StatusInvalid, out.Validation.Status)
	assert.Equal(t, DefaultMaxIterations, out.Iterations)
	require.NotEmpty(t, out.Validation.Errors)
	assert.Equal(t, validation.CodeVoltageMismatch, out.Validation.Errors[0].Code)
	assert.NotNil(t, out.Graph, "partial progress must be returned")
}

func TestRunLoopDefaultsBadBudget(t *testing.T) {
	g := &circuit.Graph{}
	out := RunLoop(g, 0)
	assert.Equal(t, validation.StatusValid, out.Validation.Status)
	assert.Equal(t, 1, out.Iterations)
}
