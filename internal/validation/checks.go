package validation

import (
	"fmt"
	"strings"

	"github.com/circuit-studio/engine/internal/circuit"
)

// Per-check property defaults. Each check owns the defaults for the
// keys it reads so magic numbers live in exactly one place.
const (
	defaultVoltageMin = 0.0
	defaultVoltageMax = 5.5

	// Canonical GPIO source-current ceiling when the MCU does not
	// declare gpio_max_current_mA. 20 mA matches the conservative
	// per-pin rating of common 3.3 V MCUs.
	DefaultGPIOMaxCurrentMA = 20.0
)

// CheckFunc inspects a graph for one class of violation. Checks are
// pure: no I/O, no mutation, and malformed references become issues
// rather than failures.
type CheckFunc func(g *circuit.Graph) []Issue

// Check pairs an identifier with its function so callers can run a
// named subset.
type Check struct {
	Name string
	Run  CheckFunc
}

// CheckVoltageCompatibility verifies every consumer on a power rail
// operates within its rated voltage range.
func CheckVoltageCompatibility(g *circuit.Graph) []Issue {
	var issues []Issue
	nodes := g.NodeMap()

	for _, rail := range g.PowerRails {
		for _, consumerID := range rail.Consumers {
			node, ok := nodes[consumerID]
			if !ok {
				issues = append(issues, Issue{
					Code:       CodeUnknownConsumer,
					Severity:   SeverityError,
					Message:    fmt.Sprintf("rail %s: consumer %q not found in node list", rail.Name, consumerID),
					NodeIDs:    []string{consumerID},
					Suggestion: "Remove stale consumer reference",
				})
				continue
			}

			vMin := node.Properties.Float("operating_voltage_min", defaultVoltageMin)
			vMax := node.Properties.Float("operating_voltage_max", defaultVoltageMax)

			if rail.Voltage < vMin || rail.Voltage > vMax {
				issues = append(issues, Issue{
					Code:     CodeVoltageMismatch,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s (%s) requires %g-%gV, but rail %s supplies %gV",
						node.ID, node.PartNumber, vMin, vMax, rail.Name, rail.Voltage),
					NodeIDs:    []string{node.ID},
					Suggestion: fmt.Sprintf("Add level shifter or select component compatible with %gV", rail.Voltage),
				})
			}
		}
	}

	return issues
}

// CheckGroundContinuity requires every IC (mcu, sensor, regulator) to
// touch at least one edge on the ground net.
func CheckGroundContinuity(g *circuit.Graph) []Issue {
	var issues []Issue
	gnd := g.Ground()

	grounded := make(map[string]bool)
	for _, e := range g.Edges {
		if e.NetName == gnd || e.SignalType == circuit.SignalGround {
			grounded[e.SourceNode] = true
			grounded[e.TargetNode] = true
		}
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if circuit.ICTypes[n.Type] && !grounded[n.ID] {
			issues = append(issues, Issue{
				Code:       CodeMissingGround,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%s (%s) has no ground connection", n.ID, n.PartNumber),
				NodeIDs:    []string{n.ID},
				Suggestion: fmt.Sprintf("Connect %s.GND to %s", n.ID, gnd),
			})
		}
	}

	return issues
}

// CheckShortCircuits detects edges that bridge a power output pin
// (VCC, VOUT) directly to a GND pin on a non-ground net. Edges doing
// legitimate ground routing (ground net or signal_type ground) are
// exempt: those are return current paths, not shorts.
func CheckShortCircuits(g *circuit.Graph) []Issue {
	var issues []Issue
	gnd := g.Ground()

	isPowerOut := func(pin string) bool { return pin == "VCC" || pin == "VOUT" }

	for _, e := range g.Edges {
		if e.SignalType == circuit.SignalGround || e.NetName == gnd {
			continue
		}

		src := strings.ToUpper(e.SourcePin)
		tgt := strings.ToUpper(e.TargetPin)

		short := (isPowerOut(src) && tgt == "GND") || (isPowerOut(tgt) && src == "GND")
		if short {
			issues = append(issues, Issue{
				Code:     CodeShortCircuit,
				Severity: SeverityError,
				Message: fmt.Sprintf("short circuit: %s.%s -> %s.%s on net %s",
					e.SourceNode, e.SourcePin, e.TargetNode, e.TargetPin, e.NetName),
				NodeIDs:    []string{e.SourceNode, e.TargetNode},
				Suggestion: "Remove direct power-to-ground connection or add a load between them",
			})
		}
	}

	return issues
}

// CheckGPIOOvercurrent flags actuators driven directly from MCU GPIO
// (driver transistor recommended) and any load whose declared draw
// exceeds the MCU's per-pin limit.
func CheckGPIOOvercurrent(g *circuit.Graph) []Issue {
	var issues []Issue
	nodes := g.NodeMap()

	for i := range g.Nodes {
		mcu := &g.Nodes[i]
		if mcu.Type != circuit.TypeMCU {
			continue
		}

		maxMA := mcu.Properties.Float("gpio_max_current_mA", DefaultGPIOMaxCurrentMA)

		for _, e := range g.Edges {
			if e.SourceNode != mcu.ID || e.SignalType != circuit.SignalSignal {
				continue
			}
			target, ok := nodes[e.TargetNode]
			if !ok {
				continue
			}

			if target.Type == circuit.TypeActuator {
				issues = append(issues, Issue{
					Code:     CodeGPIOOvercurrentRisk,
					Severity: SeverityWarning,
					Message: fmt.Sprintf("actuator %s connected directly to %s GPIO (max %gmA per pin)",
						target.ID, mcu.ID, maxMA),
					NodeIDs:    []string{mcu.ID, target.ID},
					Suggestion: "Add MOSFET or transistor driver between GPIO and actuator",
				})
			}

			if draw := target.Properties.Float("current_draw_mA", 0); draw > maxMA {
				issues = append(issues, Issue{
					Code:     CodeGPIOOvercurrent,
					Severity: SeverityError,
					Message: fmt.Sprintf("%s draws %gmA but %s GPIO max is %gmA",
						target.ID, draw, mcu.ID, maxMA),
					NodeIDs:    []string{mcu.ID, target.ID},
					Suggestion: fmt.Sprintf("Add driver circuit, GPIO can only source %gmA", maxMA),
				})
			}
		}
	}

	return issues
}

// CheckRegulatorDropout verifies the upstream supply exceeds
// vout + dropout for every regulator and does not fall below vin_min.
// Both violations may fire independently for the same node.
func CheckRegulatorDropout(g *circuit.Graph) []Issue {
	var issues []Issue
	sourceV := g.SupplyVoltage()

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type != circuit.TypeRegulator {
			continue
		}

		vout := n.Properties.Float("vout", 0)
		dropout := n.Properties.Float("dropout_v", 0)
		vinMin := n.Properties.Float("vin_min", 0)
		required := vout + dropout

		if sourceV > 0 && sourceV < required {
			issues = append(issues, Issue{
				Code:     CodeDropoutViolation,
				Severity: SeverityError,
				Message: fmt.Sprintf("%s: input %gV < required %gV (Vout=%gV + dropout=%gV)",
					n.ID, sourceV, required, vout, dropout),
				NodeIDs:    []string{n.ID},
				Suggestion: "Use a lower-dropout regulator or increase input voltage",
			})
		}

		if sourceV > 0 && vinMin > 0 && sourceV < vinMin {
			issues = append(issues, Issue{
				Code:       CodeVinBelowMin,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%s: input %gV below minimum Vin=%gV", n.ID, sourceV, vinMin),
				NodeIDs:    []string{n.ID},
				Suggestion: fmt.Sprintf("Ensure input voltage >= %gV", vinMin),
			})
		}
	}

	return issues
}

// CheckDecouplingCaps tracks per-IC decoupling coverage. Passive nodes
// whose purpose mentions "decoupling" cover the ICs they are wired to;
// all uncovered ICs are reported in a single aggregated warning.
func CheckDecouplingCaps(g *circuit.Graph) []Issue {
	nodes := g.NodeMap()

	covered := make(map[string]bool)
	for i := range g.Nodes {
		c := &g.Nodes[i]
		if c.Type != circuit.TypePassive {
			continue
		}
		if !strings.Contains(strings.ToLower(c.Properties.String("purpose", "")), "decoupling") {
			continue
		}
		for _, e := range g.Edges {
			var peerID string
			switch {
			case e.SourceNode == c.ID:
				peerID = e.TargetNode
			case e.TargetNode == c.ID:
				peerID = e.SourceNode
			default:
				continue
			}
			if peer, ok := nodes[peerID]; ok && circuit.ICTypes[peer.Type] {
				covered[peer.ID] = true
			}
		}
	}

	var uncovered []string
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if circuit.ICTypes[n.Type] && !covered[n.ID] {
			uncovered = append(uncovered, n.ID)
		}
	}

	if len(uncovered) == 0 {
		return nil
	}

	return []Issue{{
		Code:     CodeMissingDecoupling,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("%d IC(s) without decoupling capacitor: %s",
			len(uncovered), strings.Join(uncovered, ", ")),
		NodeIDs:    uncovered,
		Suggestion: "Add 100nF (0.1uF) ceramic capacitor between each IC's VCC and GND pins",
	}}
}

// CheckPullUpResistors requires pull-up resistors on SDA and SCL when
// the graph uses I2C. SDA and SCL are evaluated independently.
func CheckPullUpResistors(g *circuit.Graph) []Issue {
	usesI2C := false
	for _, e := range g.Edges {
		if strings.HasPrefix(strings.ToUpper(e.NetName), "I2C") ||
			isI2CPin(e.SourcePin) || isI2CPin(e.TargetPin) {
			usesI2C = true
			break
		}
	}
	if !usesI2C {
		return nil
	}

	hasSDA, hasSCL := false, false
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type != circuit.TypePassive {
			continue
		}
		purpose := strings.ToLower(n.Properties.String("purpose", ""))
		if !strings.Contains(purpose, "pull-up") && !strings.Contains(purpose, "pullup") {
			continue
		}

		pins := make(map[string]bool)
		for _, e := range g.Edges {
			if e.SourceNode == n.ID {
				pins[strings.ToUpper(e.TargetPin)] = true
			} else if e.TargetNode == n.ID {
				pins[strings.ToUpper(e.SourcePin)] = true
			}
		}

		if pins["SDA"] || strings.Contains(purpose, "sda") {
			hasSDA = true
		}
		if pins["SCL"] || strings.Contains(purpose, "scl") {
			hasSCL = true
		}
	}

	var issues []Issue
	if !hasSDA {
		issues = append(issues, Issue{
			Code:       CodeMissingPullupSDA,
			Severity:   SeverityWarning,
			Message:    "I2C SDA line has no pull-up resistor",
			NodeIDs:    []string{},
			Suggestion: "Add 4.7k pull-up resistor on SDA to VCC",
		})
	}
	if !hasSCL {
		issues = append(issues, Issue{
			Code:       CodeMissingPullupSCL,
			Severity:   SeverityWarning,
			Message:    "I2C SCL line has no pull-up resistor",
			NodeIDs:    []string{},
			Suggestion: "Add 4.7k pull-up resistor on SCL to VCC",
		})
	}
	return issues
}

func isI2CPin(pin string) bool {
	p := strings.ToUpper(pin)
	return p == "SDA" || p == "SCL"
}
