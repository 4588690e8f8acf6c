package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/circuit"
)

func mcuNode(id string) circuit.Node {
	return circuit.Node{
		ID:         id,
		Type:       circuit.TypeMCU,
		PartNumber: "ESP32-C3",
		Properties: circuit.Properties{"operating_voltage_min": 3.0, "operating_voltage_max": 3.6},
		Pins:       []string{"VCC", "GND", "GPIO0", "SDA", "SCL"},
	}
}

func sensorNode(id string, vMin, vMax float64) circuit.Node {
	return circuit.Node{
		ID:         id,
		Type:       circuit.TypeSensor,
		PartNumber: "BME280",
		Properties: circuit.Properties{"operating_voltage_min": vMin, "operating_voltage_max": vMax},
		Pins:       []string{"VCC", "GND", "SDA", "SCL"},
	}
}

func regulatorNode(vout, dropout, vinMin float64) circuit.Node {
	return circuit.Node{
		ID:         "REG1",
		Type:       circuit.TypeRegulator,
		PartNumber: "MCP1700-3302E",
		Properties: circuit.Properties{"vout": vout, "dropout_v": dropout, "vin_min": vinMin},
		Pins:       []string{"VIN", "GND", "VOUT"},
	}
}

func capNode(id string) circuit.Node {
	return circuit.Node{
		ID:         id,
		Type:       circuit.TypePassive,
		PartNumber: "GRM188R71C104KA01D",
		Properties: circuit.Properties{"purpose": "Decoupling capacitor"},
		Pins:       []string{"P1", "P2"},
	}
}

func pullupNode(id, purpose string) circuit.Node {
	return circuit.Node{
		ID:         id,
		Type:       circuit.TypePassive,
		PartNumber: "RC0402FR-074K7L",
		Properties: circuit.Properties{"purpose": purpose},
		Pins:       []string{"P1", "P2"},
	}
}

func gndEdge(src, tgt string) circuit.Edge {
	return circuit.Edge{
		ID:         "e_" + src + "_" + tgt + "_gnd",
		SourceNode: src,
		SourcePin:  "GND",
		TargetNode: tgt,
		TargetPin:  "GND",
		NetName:    "GND",
		SignalType: circuit.SignalGround,
	}
}

func TestCheckVoltageCompatibility(t *testing.T) {
	t.Run("within range", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6)},
			PowerRails: []circuit.PowerRail{
				{Name: "VCC", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{"MCU1", "SENSOR1"}},
			},
		}
		assert.Empty(t, CheckVoltageCompatibility(g))
	})

	t.Run("rail too high", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{sensorNode("SENSOR1", 1.8, 3.6)},
			PowerRails: []circuit.PowerRail{
				{Name: "VCC", Voltage: 5.0, SourceNode: "REG1", Consumers: []string{"SENSOR1"}},
			},
		}
		issues := CheckVoltageCompatibility(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeVoltageMismatch, issues[0].Code)
		assert.Equal(t, []string{"SENSOR1"}, issues[0].NodeIDs)
	})

	t.Run("rail too low for 5V sensor", func(t *testing.T) {
		// A 4.5-5.5V part on a 3.3V rail must mismatch.
		g := &circuit.Graph{
			Nodes: []circuit.Node{sensorNode("SENSOR1", 4.5, 5.5)},
			PowerRails: []circuit.PowerRail{
				{Name: "3V3", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{"SENSOR1"}},
			},
		}
		issues := CheckVoltageCompatibility(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeVoltageMismatch, issues[0].Code)
	})

	t.Run("unknown consumer", func(t *testing.T) {
		g := &circuit.Graph{
			PowerRails: []circuit.PowerRail{
				{Name: "VCC", Voltage: 3.3, SourceNode: "REG1", Consumers: []string{"GHOST"}},
			},
		}
		issues := CheckVoltageCompatibility(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeUnknownConsumer, issues[0].Code)
		assert.Equal(t, []string{"GHOST"}, issues[0].NodeIDs)
	})

	t.Run("defaults apply when properties missing", func(t *testing.T) {
		bare := circuit.Node{ID: "X1", Type: circuit.TypeSensor, PartNumber: "UNKNOWN"}
		g := &circuit.Graph{
			Nodes: []circuit.Node{bare},
			PowerRails: []circuit.PowerRail{
				{Name: "VCC", Voltage: 5.0, Consumers: []string{"X1"}},
			},
		}
		// Default window 0-5.5V accepts 5V.
		assert.Empty(t, CheckVoltageCompatibility(g))
	})
}

func TestCheckGroundContinuity(t *testing.T) {
	t.Run("grounded via ground net edge", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6)},
			Edges: []circuit.Edge{gndEdge("MCU1", "SENSOR1")},
		}
		assert.Empty(t, CheckGroundContinuity(g))
	})

	t.Run("mcu with no edges at all", func(t *testing.T) {
		g := &circuit.Graph{Nodes: []circuit.Node{mcuNode("MCU1")}}
		issues := CheckGroundContinuity(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeMissingGround, issues[0].Code)
		assert.Equal(t, []string{"MCU1"}, issues[0].NodeIDs)
	})

	t.Run("passives not required to ground", func(t *testing.T) {
		g := &circuit.Graph{Nodes: []circuit.Node{capNode("C1")}}
		assert.Empty(t, CheckGroundContinuity(g))
	})

	t.Run("custom ground net name", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes:     []circuit.Node{mcuNode("MCU1")},
			GroundNet: "AGND",
			Edges: []circuit.Edge{{
				ID: "e1", SourceNode: "MCU1", SourcePin: "GND",
				TargetNode: "AGND", TargetPin: "GND",
				NetName: "AGND", SignalType: circuit.SignalPower,
			}},
		}
		assert.Empty(t, CheckGroundContinuity(g))
	})
}

func TestCheckShortCircuits(t *testing.T) {
	shortEdge := func(sigType, net string) circuit.Edge {
		return circuit.Edge{
			ID:         "short",
			SourceNode: "MCU1",
			SourcePin:  "VCC",
			TargetNode: "MCU1",
			TargetPin:  "GND",
			NetName:    net,
			SignalType: sigType,
		}
	}

	t.Run("vcc to gnd on power net fires", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1")},
			Edges: []circuit.Edge{shortEdge(circuit.SignalPower, "SHORT")},
		}
		issues := CheckShortCircuits(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeShortCircuit, issues[0].Code)
	})

	t.Run("same edge tagged ground is exempt", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1")},
			Edges: []circuit.Edge{shortEdge(circuit.SignalGround, "SHORT")},
		}
		assert.Empty(t, CheckShortCircuits(g))
	})

	t.Run("same edge on the ground net is exempt", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1")},
			Edges: []circuit.Edge{shortEdge(circuit.SignalPower, "GND")},
		}
		assert.Empty(t, CheckShortCircuits(g))
	})

	t.Run("reversed direction fires", func(t *testing.T) {
		g := &circuit.Graph{
			Edges: []circuit.Edge{{
				ID: "rev", SourceNode: "REG1", SourcePin: "GND",
				TargetNode: "REG1", TargetPin: "VOUT",
				NetName: "OOPS", SignalType: circuit.SignalPower,
			}},
		}
		issues := CheckShortCircuits(g)
		require.Len(t, issues, 1)
	})

	t.Run("pin names matched case-insensitively", func(t *testing.T) {
		g := &circuit.Graph{
			Edges: []circuit.Edge{{
				ID: "cs", SourceNode: "U1", SourcePin: "vcc",
				TargetNode: "U1", TargetPin: "gnd",
				NetName: "X", SignalType: circuit.SignalPower,
			}},
		}
		require.Len(t, CheckShortCircuits(g), 1)
	})
}

func TestCheckGPIOOvercurrent(t *testing.T) {
	sigEdge := func(tgt string) circuit.Edge {
		return circuit.Edge{
			ID: "sig", SourceNode: "MCU1", SourcePin: "GPIO0",
			TargetNode: tgt, TargetPin: "IN",
			NetName: "CTRL", SignalType: circuit.SignalSignal,
		}
	}

	t.Run("sensor target is fine", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6)},
			Edges: []circuit.Edge{sigEdge("SENSOR1")},
		}
		assert.Empty(t, CheckGPIOOvercurrent(g))
	})

	t.Run("actuator target warns", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{
				mcuNode("MCU1"),
				{ID: "M1", Type: circuit.TypeActuator, PartNumber: "RELAY-5V"},
			},
			Edges: []circuit.Edge{sigEdge("M1")},
		}
		issues := CheckGPIOOvercurrent(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeGPIOOvercurrentRisk, issues[0].Code)
		assert.Equal(t, SeverityWarning, issues[0].Severity)
	})

	t.Run("declared draw above limit errors", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{
				mcuNode("MCU1"),
				{
					ID: "M1", Type: circuit.TypeActuator, PartNumber: "SG90",
					Properties: circuit.Properties{"current_draw_mA": 120.0},
				},
			},
			Edges: []circuit.Edge{sigEdge("M1")},
		}
		issues := CheckGPIOOvercurrent(g)
		require.Len(t, issues, 2)
		assert.Equal(t, CodeGPIOOvercurrentRisk, issues[0].Code)
		assert.Equal(t, CodeGPIOOvercurrent, issues[1].Code)
	})

	t.Run("default limit is 20mA", func(t *testing.T) {
		mcu := mcuNode("MCU1")
		delete(mcu.Properties, "gpio_max_current_mA")
		g := &circuit.Graph{
			Nodes: []circuit.Node{
				mcu,
				{
					ID: "S1", Type: circuit.TypeSensor, PartNumber: "HC-SR04",
					Properties: circuit.Properties{"current_draw_mA": 25.0},
				},
			},
			Edges: []circuit.Edge{sigEdge("S1")},
		}
		issues := CheckGPIOOvercurrent(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeGPIOOvercurrent, issues[0].Code)
	})

	t.Run("missing target node skipped", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1")},
			Edges: []circuit.Edge{sigEdge("GHOST")},
		}
		assert.Empty(t, CheckGPIOOvercurrent(g))
	})
}

func TestCheckRegulatorDropout(t *testing.T) {
	t.Run("healthy headroom", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes:       []circuit.Node{regulatorNode(3.3, 0.3, 2.3)},
			PowerSource: map[string]any{"voltage": 5.0},
		}
		assert.Empty(t, CheckRegulatorDropout(g))
	})

	t.Run("both violations fire independently", func(t *testing.T) {
		// Supply 3.7V vs vout 3.3 + dropout 1.1 = 4.4 required, and
		// vin_min 4.5: dropout and vin-min both trip.
		g := &circuit.Graph{
			Nodes:       []circuit.Node{regulatorNode(3.3, 1.1, 4.5)},
			PowerSource: map[string]any{"voltage": 3.7},
		}
		issues := CheckRegulatorDropout(g)
		require.Len(t, issues, 2)
		assert.Equal(t, CodeDropoutViolation, issues[0].Code)
		assert.Equal(t, CodeVinBelowMin, issues[1].Code)
	})

	t.Run("unknown supply voltage skips check", func(t *testing.T) {
		g := &circuit.Graph{Nodes: []circuit.Node{regulatorNode(3.3, 1.1, 4.5)}}
		assert.Empty(t, CheckRegulatorDropout(g))
	})
}

func TestCheckDecouplingCaps(t *testing.T) {
	t.Run("uncovered ICs aggregated into one issue", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6)},
		}
		issues := CheckDecouplingCaps(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeMissingDecoupling, issues[0].Code)
		assert.Equal(t, []string{"MCU1", "SENSOR1"}, issues[0].NodeIDs)
	})

	t.Run("cap wired to IC covers it", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), capNode("C1")},
			Edges: []circuit.Edge{{
				ID: "e1", SourceNode: "C1", SourcePin: "P1",
				TargetNode: "MCU1", TargetPin: "VCC",
				NetName: "3V3", SignalType: circuit.SignalPower,
			}},
		}
		assert.Empty(t, CheckDecouplingCaps(g))
	})

	t.Run("cap floating in space covers nothing", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), capNode("C1")},
		}
		issues := CheckDecouplingCaps(g)
		require.Len(t, issues, 1)
		assert.Equal(t, []string{"MCU1"}, issues[0].NodeIDs)
	})
}

func TestCheckPullUpResistors(t *testing.T) {
	i2cEdges := []circuit.Edge{
		{
			ID: "sda", SourceNode: "MCU1", SourcePin: "SDA",
			TargetNode: "SENSOR1", TargetPin: "SDA",
			NetName: "I2C_SDA", SignalType: circuit.SignalSignal,
		},
		{
			ID: "scl", SourceNode: "MCU1", SourcePin: "SCL",
			TargetNode: "SENSOR1", TargetPin: "SCL",
			NetName: "I2C_SCL", SignalType: circuit.SignalSignal,
		},
	}

	t.Run("no i2c usage means no issues", func(t *testing.T) {
		g := &circuit.Graph{Nodes: []circuit.Node{mcuNode("MCU1")}}
		assert.Empty(t, CheckPullUpResistors(g))
	})

	t.Run("both lines missing pull-ups", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6)},
			Edges: i2cEdges,
		}
		issues := CheckPullUpResistors(g)
		require.Len(t, issues, 2)
		assert.Equal(t, CodeMissingPullupSDA, issues[0].Code)
		assert.Equal(t, CodeMissingPullupSCL, issues[1].Code)
	})

	t.Run("both pull-ups present clears all", func(t *testing.T) {
		edges := append(append([]circuit.Edge{}, i2cEdges...),
			circuit.Edge{
				ID: "pu_sda", SourceNode: "R1", SourcePin: "P2",
				TargetNode: "MCU1", TargetPin: "SDA",
				NetName: "I2C_SDA", SignalType: circuit.SignalSignal,
			},
			circuit.Edge{
				ID: "pu_scl", SourceNode: "R2", SourcePin: "P2",
				TargetNode: "MCU1", TargetPin: "SCL",
				NetName: "I2C_SCL", SignalType: circuit.SignalSignal,
			},
		)
		g := &circuit.Graph{
			Nodes: []circuit.Node{
				mcuNode("MCU1"), sensorNode("SENSOR1", 1.8, 3.6),
				pullupNode("R1", "I2C pull-up"),
				pullupNode("R2", "I2C pull-up"),
			},
			Edges: edges,
		}
		assert.Empty(t, CheckPullUpResistors(g))
	})

	t.Run("purpose text alone can satisfy a line", func(t *testing.T) {
		g := &circuit.Graph{
			Nodes: []circuit.Node{
				mcuNode("MCU1"),
				pullupNode("R1", "pull-up for SDA"),
			},
			Edges: i2cEdges[:1],
		}
		issues := CheckPullUpResistors(g)
		require.Len(t, issues, 1)
		assert.Equal(t, CodeMissingPullupSCL, issues[0].Code)
	})
}
