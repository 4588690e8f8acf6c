// Package generator builds a circuit graph from a component selection.
// Output graphs are schematically complete but unreviewed; they go
// through validation and correction before anything downstream sees
// them.
package generator

import (
	"fmt"
	"strings"

	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/circuit"
)

const (
	mcuRef       = "U1"
	vccRail      = "3V3"
	batteryInput = "VBAT"
)

// maxExposedGPIO caps how many plain GPIO pins a generated MCU node
// exposes. Nobody routes 34 spare GPIOs on an auto-generated board.
const maxExposedGPIO = 20

func mcuNode(sel *catalog.Selection) circuit.Node {
	mcu := sel.MCU

	pins := []string{"VCC", "GND"}
	n := mcu.GPIOCount
	if n > maxExposedGPIO {
		n = maxExposedGPIO
	}
	for i := 0; i < n; i++ {
		pins = append(pins, fmt.Sprintf("GPIO%d", i))
	}
	for _, iface := range mcu.Interfaces {
		switch iface {
		case "I2C":
			pins = append(pins, "SDA", "SCL")
		case "SPI":
			pins = append(pins, "MOSI", "MISO", "SCK", "CS")
		case "UART":
			pins = append(pins, "TX", "RX")
		}
	}

	return circuit.Node{
		ID:         mcuRef,
		Type:       circuit.TypeMCU,
		PartNumber: mcu.PartNumber,
		Properties: circuit.Properties{
			"operating_voltage":   mcu.OperatingVoltage,
			"clock_mhz":           mcu.ClockMHz,
			"gpio_max_current_mA": 40.0,
		},
		Pins: pins,
	}
}

func sensorNodes(sel *catalog.Selection) []circuit.Node {
	var nodes []circuit.Node
	for i, s := range sel.Sensors {
		pins := []string{"VCC", "GND"}
		switch s.Interface {
		case "I2C":
			pins = append(pins, "SDA", "SCL")
		case "SPI":
			pins = append(pins, "MOSI", "MISO", "SCK", "CS")
		case "analog":
			pins = append(pins, "AOUT")
		default:
			pins = append(pins, "DOUT")
		}
		nodes = append(nodes, circuit.Node{
			ID:         fmt.Sprintf("S%d", i+1),
			Type:       circuit.TypeSensor,
			PartNumber: s.PartNumber,
			Properties: circuit.Properties{
				"sensor_type":           s.SensorType,
				"operating_voltage_min": s.OperatingVoltageMin,
				"operating_voltage_max": s.OperatingVoltageMax,
			},
			Pins: pins,
		})
	}
	return nodes
}

func regulatorNode(sel *catalog.Selection) *circuit.Node {
	if len(sel.Regulators) == 0 {
		return nil
	}
	reg := sel.Regulators[0]
	return &circuit.Node{
		ID:         "REG1",
		Type:       circuit.TypeRegulator,
		PartNumber: reg.PartNumber,
		Properties: circuit.Properties{
			"vin_min":        reg.VinMin,
			"vin_max":        reg.VinMax,
			"vout":           reg.Vout,
			"dropout_v":      reg.DropoutV,
			"max_current_ma": reg.MaxCurrentMA,
		},
		Pins: []string{"VIN", "VOUT", "GND"},
	}
}

func passiveNodes(sel *catalog.Selection) []circuit.Node {
	var nodes []circuit.Node
	for i, p := range sel.Passives {
		prefix := "R"
		if p.ComponentType == "capacitor" {
			prefix = "C"
		}
		nodes = append(nodes, circuit.Node{
			ID:         fmt.Sprintf("%s%d", prefix, i+1),
			Type:       circuit.TypePassive,
			PartNumber: p.PartNumber,
			Properties: circuit.Properties{
				"value":   p.Value,
				"purpose": p.Purpose,
			},
			Pins: []string{"P1", "P2"},
		})
	}
	return nodes
}

func protectionNodes(sel *catalog.Selection) []circuit.Node {
	var nodes []circuit.Node
	for i, p := range sel.Protection {
		pins := []string{"P1", "P2"}
		if strings.Contains(strings.ToLower(p.ComponentType), "diode") {
			pins = []string{"A", "K"}
		}
		nodes = append(nodes, circuit.Node{
			ID:         fmt.Sprintf("D%d", i+1),
			Type:       circuit.TypeProtection,
			PartNumber: p.PartNumber,
			Properties: circuit.Properties{
				"rating":  p.Rating,
				"purpose": p.Purpose,
			},
			Pins: pins,
		})
	}
	return nodes
}

type edgeBuilder struct {
	edges []circuit.Edge
	seq   int
}

func (b *edgeBuilder) add(srcNode, srcPin, tgtNode, tgtPin, net, sigType string) {
	b.seq++
	b.edges = append(b.edges, circuit.Edge{
		ID:         fmt.Sprintf("E%d", b.seq),
		SourceNode: srcNode,
		SourcePin:  srcPin,
		TargetNode: tgtNode,
		TargetPin:  tgtPin,
		NetName:    net,
		SignalType: sigType,
	})
}

func hasPin(n circuit.Node, pin string) bool {
	for _, p := range n.Pins {
		if p == pin {
			return true
		}
	}
	return false
}

func generateEdges(mcu circuit.Node, sensors []circuit.Node, regulator *circuit.Node, passives, protection []circuit.Node) []circuit.Edge {
	b := &edgeBuilder{}

	if regulator != nil {
		b.add(regulator.ID, "VOUT", mcu.ID, "VCC", vccRail, circuit.SignalPower)
		b.add(regulator.ID, "GND", "GND", "GND", "GND", circuit.SignalGround)
	} else {
		b.add(batteryInput, "P", mcu.ID, "VCC", vccRail, circuit.SignalPower)
	}

	b.add(mcu.ID, "GND", "GND", "GND", "GND", circuit.SignalGround)

	gpioIndex := 0
	for _, s := range sensors {
		b.add(vccRail, "P", s.ID, "VCC", vccRail, circuit.SignalPower)
		b.add(s.ID, "GND", "GND", "GND", "GND", circuit.SignalGround)

		switch {
		case hasPin(s, "SDA"):
			b.add(mcu.ID, "SDA", s.ID, "SDA", "I2C_SDA", circuit.SignalSignal)
			b.add(mcu.ID, "SCL", s.ID, "SCL", "I2C_SCL", circuit.SignalSignal)
		case hasPin(s, "MOSI"):
			b.add(mcu.ID, "MOSI", s.ID, "MOSI", "SPI_MOSI", circuit.SignalSignal)
			b.add(mcu.ID, "MISO", s.ID, "MISO", "SPI_MISO", circuit.SignalSignal)
			b.add(mcu.ID, "SCK", s.ID, "SCK", "SPI_SCK", circuit.SignalSignal)
			b.add(mcu.ID, fmt.Sprintf("GPIO%d", gpioIndex), s.ID, "CS", fmt.Sprintf("SPI_CS%d", gpioIndex), circuit.SignalSignal)
			gpioIndex++
		case hasPin(s, "AOUT"):
			b.add(s.ID, "AOUT", mcu.ID, fmt.Sprintf("GPIO%d", gpioIndex), fmt.Sprintf("ADC%d", gpioIndex), circuit.SignalSignal)
			gpioIndex++
		}
	}

	// Decoupling and bulk caps go between the rail and ground. Tying
	// each cap to a specific IC is left to the correction pass.
	for _, p := range passives {
		purpose := strings.ToLower(p.Properties.String("purpose", ""))
		if strings.HasPrefix(purpose, "decoupling") || strings.HasPrefix(purpose, "bulk") {
			b.add(vccRail, "P", p.ID, "P1", vccRail, circuit.SignalPower)
			b.add(p.ID, "P2", "GND", "GND", "GND", circuit.SignalGround)
		}
	}

	for _, p := range passives {
		if strings.Contains(strings.ToLower(p.Properties.String("purpose", "")), "pull-up") {
			b.add(vccRail, "P", p.ID, "P1", vccRail, circuit.SignalPower)
			b.add(p.ID, "P2", mcu.ID, "SDA", "I2C_SDA", circuit.SignalSignal)
		}
	}

	if len(protection) > 0 && regulator != nil {
		b.add(batteryInput, "P", protection[0].ID, "A", "VBAT_RAW", circuit.SignalPower)
		b.add(protection[0].ID, "K", regulator.ID, "VIN", "VBAT_PROT", circuit.SignalPower)
	}

	return b.edges
}

// Generate builds the full circuit graph for a selection.
func Generate(sel *catalog.Selection) *circuit.Graph {
	mcu := mcuNode(sel)
	sensors := sensorNodes(sel)
	regulator := regulatorNode(sel)
	passives := passiveNodes(sel)
	protection := protectionNodes(sel)

	nodes := []circuit.Node{mcu}
	nodes = append(nodes, sensors...)
	nodes = append(nodes, passives...)
	nodes = append(nodes, protection...)
	if regulator != nil {
		nodes = append(nodes, *regulator)
	}

	railSource := batteryInput
	if regulator != nil {
		railSource = regulator.ID
	}
	consumers := []string{mcu.ID}
	for _, s := range sensors {
		consumers = append(consumers, s.ID)
	}

	sourceVoltage := 5.0
	if strings.Contains(strings.ToLower(sel.Power.Battery), "battery") {
		sourceVoltage = 3.7
	}

	return &circuit.Graph{
		Nodes: nodes,
		Edges: generateEdges(mcu, sensors, regulator, passives, protection),
		PowerRails: []circuit.PowerRail{{
			Name:       vccRail,
			Voltage:    sel.MCU.OperatingVoltage,
			SourceNode: railSource,
			Consumers:  consumers,
		}},
		GroundNet: "GND",
		PowerSource: map[string]any{
			"type":    sel.Power.Battery,
			"voltage": sourceVoltage,
		},
	}
}
