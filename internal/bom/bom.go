// Package bom produces a bill of materials from a validated circuit
// graph. Nodes are grouped by part number, mapped against the approved
// component database for package and pricing, and exported as
// structured entries or CSV.
package bom

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/circuit"
)

// Entry is one BOM line, one part number with aggregated quantity.
type Entry struct {
	Component           string `json:"component"`
	PartNumber          string `json:"part_number"`
	Quantity            int    `json:"quantity"`
	Package             string `json:"package"`
	EstimatedCost       string `json:"estimated_cost"`
	Distributor         string `json:"distributor"`
	ReferenceDesignator string `json:"reference_designator"`
}

// BOM is the complete bill of materials for one circuit.
type BOM struct {
	Entries            []Entry `json:"bom"`
	TotalEstimatedCost string  `json:"total_estimated_cost"`
	ComponentCount     int     `json:"component_count"`
}

var typePrefix = map[string]string{
	circuit.TypeMCU:        "U",
	circuit.TypeSensor:     "U",
	circuit.TypeRegulator:  "U",
	circuit.TypeProtection: "D",
	circuit.TypeConnector:  "J",
}

func isResistor(n *circuit.Node) bool {
	purpose := strings.ToLower(n.Properties.String("purpose", ""))
	return strings.Contains(purpose, "resistor") || strings.Contains(purpose, "pull-up")
}

func refDesignator(n *circuit.Node, index int) string {
	if n.Type == circuit.TypePassive {
		if isResistor(n) {
			return fmt.Sprintf("R%d", index+1)
		}
		return fmt.Sprintf("C%d", index+1)
	}
	prefix, ok := typePrefix[n.Type]
	if !ok {
		prefix = "X"
	}
	return fmt.Sprintf("%s%d", prefix, index+1)
}

func resolvePackage(n *circuit.Node, rec *catalog.PartRecord) string {
	if rec != nil && rec.Package != "" {
		return rec.Package
	}
	if pkg := n.Properties.String("package", ""); pkg != "" {
		return pkg
	}
	switch n.Type {
	case circuit.TypePassive:
		if isResistor(n) {
			return "0402"
		}
		return "0805"
	case circuit.TypeProtection:
		return "SOD-323"
	}
	return "SMD"
}

var passivePrices = map[string]string{
	"0201":    "$0.002",
	"0402":    "$0.005",
	"0603":    "$0.008",
	"0805":    "$0.01",
	"SOD-323": "$0.10",
}

func estimatePrice(n *circuit.Node, rec *catalog.PartRecord, pkg string) string {
	if rec != nil && rec.UnitPrice > 0 {
		return fmt.Sprintf("$%.2f", rec.UnitPrice)
	}
	switch n.Type {
	case circuit.TypePassive:
		if p, ok := passivePrices[pkg]; ok {
			return p
		}
		return "$0.01"
	case circuit.TypeProtection:
		return "$0.10"
	}
	return "See distributor"
}

// quantity sums per-node quantities, honoring "(xN)" multipliers in the
// purpose text so a single cap node specced as "(x3)" counts as three.
func quantity(nodes []*circuit.Node) int {
	total := 0
	for _, n := range nodes {
		mult := 1
		purpose := n.Properties.String("purpose", "")
		if i := strings.Index(purpose, "(x"); i >= 0 {
			rest := purpose[i+2:]
			if j := strings.Index(rest, ")"); j >= 0 {
				if v, err := strconv.Atoi(rest[:j]); err == nil {
					mult = v
				}
			}
		}
		total += mult
	}
	return total
}

var typeOrder = map[string]int{
	circuit.TypeMCU:        0,
	circuit.TypeSensor:     1,
	circuit.TypeRegulator:  2,
	circuit.TypePassive:    3,
	circuit.TypeProtection: 4,
}

// Generate builds a BOM from a circuit graph, resolving packages and
// prices against the given component database. Entries are ordered ICs
// first, then passives, then protection; grouping by part number is
// stable in node order.
func Generate(db *catalog.Database, g *circuit.Graph) (*BOM, error) {
	type group struct {
		nodes   []*circuit.Node
		indexes []int
	}
	groups := map[string]*group{}
	var order []string
	for i := range g.Nodes {
		n := &g.Nodes[i]
		grp, ok := groups[n.PartNumber]
		if !ok {
			grp = &group{}
			groups[n.PartNumber] = grp
			order = append(order, n.PartNumber)
		}
		grp.nodes = append(grp.nodes, n)
		grp.indexes = append(grp.indexes, i)
	}

	var entries []Entry
	entryType := map[string]string{}
	for _, pn := range order {
		grp := groups[pn]
		first := grp.nodes[0]

		var rec *catalog.PartRecord
		if r, ok := db.Find(pn); ok {
			rec = &r
		}

		refs := make([]string, len(grp.nodes))
		for i, n := range grp.nodes {
			refs[i] = refDesignator(n, grp.indexes[i])
		}

		pkg := resolvePackage(first, rec)

		desc := first.Properties.String("purpose", "")
		if desc == "" {
			desc = first.Type
		}
		if rec != nil {
			desc = fmt.Sprintf("%s (%s)", pn, rec.Category)
		}

		entries = append(entries, Entry{
			Component:           desc,
			PartNumber:          pn,
			Quantity:            quantity(grp.nodes),
			Package:             pkg,
			EstimatedCost:       estimatePrice(first, rec, pkg),
			Distributor:         "Digi-Key / Mouser",
			ReferenceDesignator: strings.Join(refs, ", "),
		})
		entryType[pn] = first.Type
	}

	// stable sort keeps node order within each type bucket
	sort.SliceStable(entries, func(i, j int) bool {
		return typeOrder[entryType[entries[i].PartNumber]] < typeOrder[entryType[entries[j].PartNumber]]
	})

	total := 0
	for _, e := range entries {
		total += e.Quantity
	}

	return &BOM{
		Entries:            entries,
		TotalEstimatedCost: sumCosts(entries),
		ComponentCount:     total,
	}, nil
}

func sumCosts(entries []Entry) string {
	total := 0.0
	parseable := true
	for _, e := range entries {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(e.EstimatedCost, "$", "")), 64)
		if err != nil {
			parseable = false
			continue
		}
		total += v * float64(e.Quantity)
	}
	if parseable && total > 0 {
		return fmt.Sprintf("$%.2f", total)
	}
	return "See distributor for live pricing"
}

var csvColumns = []string{
	"Item", "Reference", "Part Number", "Description", "Quantity",
	"Package", "Unit Cost", "Extended Cost", "Distributor",
}

// ToCSV renders the BOM as CSV with a trailing summary row.
func (b *BOM) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return "", err
	}
	for i, e := range b.Entries {
		ext := "N/A"
		if unit, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(e.EstimatedCost, "$", "")), 64); err == nil {
			ext = fmt.Sprintf("$%.2f", unit*float64(e.Quantity))
		}
		row := []string{
			strconv.Itoa(i + 1),
			e.ReferenceDesignator,
			e.PartNumber,
			e.Component,
			strconv.Itoa(e.Quantity),
			e.Package,
			e.EstimatedCost,
			ext,
			e.Distributor,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	summary := []string{"", "", "", "TOTAL", strconv.Itoa(b.ComponentCount), "", "", b.TotalEstimatedCost, ""}
	if err := w.Write(summary); err != nil {
		return "", err
	}
	w.Flush()
	return buf.String(), w.Error()
}
