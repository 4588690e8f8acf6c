package bom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/circuit"
)

func testDB(t *testing.T) *catalog.Database {
	t.Helper()
	db, err := catalog.Load()
	require.NoError(t, err)
	return db
}

func bomGraph() *circuit.Graph {
	return &circuit.Graph{
		Nodes: []circuit.Node{
			{ID: "U1", Type: circuit.TypeMCU, PartNumber: "ESP32-WROOM-32E"},
			{ID: "S1", Type: circuit.TypeSensor, PartNumber: "BME280"},
			{ID: "C1", Type: circuit.TypePassive, PartNumber: "GRM188R71C104KA01D",
				Properties: circuit.Properties{"purpose": "decoupling capacitor (x2)", "value": "100nF"}},
			{ID: "R1", Type: circuit.TypePassive, PartNumber: "RC0402FR-074K7L",
				Properties: circuit.Properties{"purpose": "I2C pull-up resistor (x2, SDA+SCL)", "value": "4.7kΩ"}},
			{ID: "D1", Type: circuit.TypeProtection, PartNumber: "MBR0520LT1G",
				Properties: circuit.Properties{"purpose": "reverse polarity protection"}},
			{ID: "REG1", Type: circuit.TypeRegulator, PartNumber: "MCP1700-3302E"},
		},
		GroundNet: "GND",
	}
}

func TestGenerate_OrderingByType(t *testing.T) {
	b, err := Generate(testDB(t), bomGraph())
	require.NoError(t, err)
	require.Len(t, b.Entries, 6)

	var parts []string
	for _, e := range b.Entries {
		parts = append(parts, e.PartNumber)
	}
	assert.Equal(t, []string{
		"ESP32-WROOM-32E",
		"BME280",
		"MCP1700-3302E",
		"GRM188R71C104KA01D",
		"RC0402FR-074K7L",
		"MBR0520LT1G",
	}, parts)
}

func TestGenerate_DatabaseLookup(t *testing.T) {
	b, err := Generate(testDB(t), bomGraph())
	require.NoError(t, err)

	mcu := b.Entries[0]
	assert.Equal(t, "Module-38", mcu.Package)
	assert.Equal(t, "$2.80", mcu.EstimatedCost)
	assert.Equal(t, "U1", mcu.ReferenceDesignator)
}

func TestGenerate_PassiveFallbacks(t *testing.T) {
	b, err := Generate(testDB(t), bomGraph())
	require.NoError(t, err)

	byPart := map[string]Entry{}
	for _, e := range b.Entries {
		byPart[e.PartNumber] = e
	}

	c := byPart["GRM188R71C104KA01D"]
	assert.Equal(t, "0805", c.Package)
	assert.Equal(t, "$0.01", c.EstimatedCost)
	assert.Equal(t, 2, c.Quantity, "purpose multiplier (x2) should count double")

	r := byPart["RC0402FR-074K7L"]
	assert.Equal(t, "0402", r.Package)
	assert.Equal(t, "$0.005", r.EstimatedCost)
}

func TestGenerate_GroupsDuplicateParts(t *testing.T) {
	g := bomGraph()
	g.Nodes = append(g.Nodes, circuit.Node{
		ID: "C9", Type: circuit.TypePassive, PartNumber: "GRM188R71C104KA01D",
		Properties: circuit.Properties{"purpose": "decoupling capacitor"},
	})

	b, err := Generate(testDB(t), g)
	require.NoError(t, err)
	require.Len(t, b.Entries, 6)

	for _, e := range b.Entries {
		if e.PartNumber == "GRM188R71C104KA01D" {
			assert.Equal(t, 3, e.Quantity)
			assert.Equal(t, "C3, C7", e.ReferenceDesignator)
		}
	}
}

func TestGenerate_Totals(t *testing.T) {
	b, err := Generate(testDB(t), bomGraph())
	require.NoError(t, err)

	// the pull-up's "(x2, SDA+SCL)" multiplier is unparseable and
	// counts as one, matching the designator list
	assert.Equal(t, 7, b.ComponentCount)
	assert.True(t, strings.HasPrefix(b.TotalEstimatedCost, "$"))
}

func TestToCSV(t *testing.T) {
	b, err := Generate(testDB(t), bomGraph())
	require.NoError(t, err)

	out, err := b.ToCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header + 6 entries + summary
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "Item,Reference,Part Number"))
	assert.Contains(t, lines[7], "TOTAL")
	assert.Contains(t, lines[1], "ESP32-WROOM-32E")
}
