// Package correction mutates copies of circuit graphs to resolve the
// subset of validation issues that have registered fixers. Issues
// without a fixer are left unaddressed; non-convergence is bounded by
// the loop's iteration budget, never by an error.
package correction

import (
	"fmt"

	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/validation"
)

// Part numbers for synthesized passives.
const (
	decouplingCapPart = "GRM188R71C104KA01D"
	pullupResPart     = "RC0402FR-074K7L"
)

// Result is the output of a correction pass: a corrected copy of the
// input graph plus a human-readable log of applied fixes, in issue
// processing order.
type Result struct {
	CorrectedGraph *circuit.Graph `json:"corrected_graph"`
	Corrections    []string       `json:"corrections"`
}

// fixer mutates the working graph to resolve one issue, returning one
// log line per applied fix.
type fixer func(st *state, issue validation.Issue) []string

// state is the per-call working set: the graph under mutation and the
// id pool used to keep synthesized ids collision-free.
type state struct {
	graph *circuit.Graph
	used  map[string]bool
	seq   int
}

func newState(g *circuit.Graph) *state {
	st := &state{graph: g, used: make(map[string]bool, len(g.Nodes)+len(g.Edges))}
	for i := range g.Nodes {
		st.used[g.Nodes[i].ID] = true
	}
	for i := range g.Edges {
		st.used[g.Edges[i].ID] = true
	}
	return st
}

// nextID derives a fresh id from the prefix and a counter scoped to
// this correction call, skipping anything already present.
func (st *state) nextID(prefix string) string {
	for {
		st.seq++
		id := fmt.Sprintf("%s%d", prefix, st.seq)
		if !st.used[id] {
			st.used[id] = true
			return id
		}
	}
}

func (st *state) addNode(n circuit.Node) {
	st.graph.Nodes = append(st.graph.Nodes, n)
}

func (st *state) addEdge(e circuit.Edge) {
	st.graph.Edges = append(st.graph.Edges, e)
}

// railName returns the supply rail used when wiring synthesized parts.
func (st *state) railName() string {
	if len(st.graph.PowerRails) > 0 {
		return st.graph.PowerRails[0].Name
	}
	return "3V3"
}

func (st *state) mcuID() string {
	for i := range st.graph.Nodes {
		if st.graph.Nodes[i].Type == circuit.TypeMCU {
			return st.graph.Nodes[i].ID
		}
	}
	return ""
}

// fixMissingGround wires each ungrounded node's GND pin onto the
// ground net. Issue node ids absent from the graph are skipped: Correct
// accepts caller-supplied results, and a fixer must never wire an edge
// to a node that does not exist.
func fixMissingGround(st *state, issue validation.Issue) []string {
	gnd := st.graph.Ground()
	var log []string
	for _, nodeID := range issue.NodeIDs {
		if !st.graph.HasNode(nodeID) {
			continue
		}
		st.addEdge(circuit.Edge{
			ID:         st.nextID("E_FIX_GND_"),
			SourceNode: nodeID,
			SourcePin:  "GND",
			TargetNode: gnd,
			TargetPin:  "GND",
			NetName:    gnd,
			SignalType: circuit.SignalGround,
		})
		log = append(log, fmt.Sprintf("Added ground connection for %s", nodeID))
	}
	return log
}

// fixMissingDecoupling synthesizes a 100nF capacitor per uncovered IC,
// wired rail -> cap and cap -> the IC's GND pin so the new part both
// reaches ground and covers the IC it decouples.
func fixMissingDecoupling(st *state, issue validation.Issue) []string {
	gnd := st.graph.Ground()
	rail := st.railName()
	var log []string

	for _, nodeID := range issue.NodeIDs {
		if !st.graph.HasNode(nodeID) {
			continue
		}
		capID := st.nextID("C_FIX_")
		st.addNode(circuit.Node{
			ID:         capID,
			Type:       circuit.TypePassive,
			PartNumber: decouplingCapPart,
			Properties: circuit.Properties{"value": "100nF", "purpose": "decoupling capacitor"},
			Pins:       []string{"P1", "P2"},
		})
		st.addEdge(circuit.Edge{
			ID:         st.nextID("E_FIX_"),
			SourceNode: rail,
			SourcePin:  "P",
			TargetNode: capID,
			TargetPin:  "P1",
			NetName:    rail,
			SignalType: circuit.SignalPower,
		})
		st.addEdge(circuit.Edge{
			ID:         st.nextID("E_FIX_"),
			SourceNode: capID,
			SourcePin:  "P2",
			TargetNode: nodeID,
			TargetPin:  "GND",
			NetName:    gnd,
			SignalType: circuit.SignalGround,
		})
		log = append(log, fmt.Sprintf("Added 100nF decoupling capacitor %s for %s", capID, nodeID))
	}
	return log
}

// pullupFixer synthesizes a 4.7k resistor for one I2C line, wired
// rail -> resistor and resistor -> the line's pin on the MCU.
func pullupFixer(lines ...string) fixer {
	return func(st *state, _ validation.Issue) []string {
		mcu := st.mcuID()
		if mcu == "" {
			return nil
		}
		rail := st.railName()
		var log []string

		for _, line := range lines {
			resID := st.nextID("R_FIX_PU_")
			st.addNode(circuit.Node{
				ID:         resID,
				Type:       circuit.TypePassive,
				PartNumber: pullupResPart,
				Properties: circuit.Properties{"value": "4.7k", "purpose": fmt.Sprintf("I2C pull-up (%s)", line)},
				Pins:       []string{"P1", "P2"},
			})
			st.addEdge(circuit.Edge{
				ID:         st.nextID("E_FIX_"),
				SourceNode: rail,
				SourcePin:  "P",
				TargetNode: resID,
				TargetPin:  "P1",
				NetName:    rail,
				SignalType: circuit.SignalPower,
			})
			st.addEdge(circuit.Edge{
				ID:         st.nextID("E_FIX_"),
				SourceNode: resID,
				SourcePin:  "P2",
				TargetNode: mcu,
				TargetPin:  line,
				NetName:    "I2C_" + line,
				SignalType: circuit.SignalSignal,
			})
			log = append(log, fmt.Sprintf("Added 4.7k pull-up on I2C %s", line))
		}
		return log
	}
}

// fixers maps issue codes to their fix functions. Codes absent here
// are not auto-fixable and are skipped silently.
var fixers = map[string]fixer{
	validation.CodeMissingGround:     fixMissingGround,
	validation.CodeMissingDecoupling: fixMissingDecoupling,
	validation.CodeMissingPullupSDA:  pullupFixer("SDA"),
	validation.CodeMissingPullupSCL:  pullupFixer("SCL"),

	// Legacy combined code still produced by older graph sources.
	"W_MISSING_PULLUP": pullupFixer("SDA", "SCL"),
}

// Correct applies registered fixers to a deep copy of the graph,
// processing error issues first in validator order, then warnings.
// The caller's graph is never touched.
func Correct(g *circuit.Graph, res *validation.Result) *Result {
	st := newState(g.Clone())
	corrections := []string{}

	for _, issue := range append(append([]validation.Issue{}, res.Errors...), res.Warnings...) {
		fix, ok := fixers[issue.Code]
		if !ok {
			continue
		}
		corrections = append(corrections, fix(st, issue)...)
	}

	return &Result{CorrectedGraph: st.graph, Corrections: corrections}
}
