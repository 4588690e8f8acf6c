package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/internal/intent"
)

func TestLoad_EmbeddedDatabase(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, db.MCUs)
	assert.NotEmpty(t, db.Sensors)
	assert.NotEmpty(t, db.Regulators)
}

// Each Load call must hand back an independent database: callers own
// their copy and may mutate it without affecting anyone else.
func TestLoad_CallerOwnedCopies(t *testing.T) {
	a, err := Load()
	require.NoError(t, err)
	b, err := Load()
	require.NoError(t, err)

	require.NotSame(t, a, b)

	original := b.MCUs[0].PartNumber
	a.MCUs[0].PartNumber = "MUTATED"
	assert.Equal(t, original, b.MCUs[0].PartNumber)
}

func TestSelectMCU_WirelessMatch(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	sel := db.Select(intent.HardwareIntent{Connectivity: []string{"WiFi"}})
	assert.Contains(t, sel.MCU.Wireless, "WiFi")
}

func TestSelectMCU_BLEOnlyPrefersNordic(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	sel := db.Select(intent.HardwareIntent{
		Connectivity:          []string{"BLE", "Zigbee"},
		CommunicationProtocol: []string{"USB"},
	})
	assert.Equal(t, "NRF52840", sel.MCU.PartNumber)
}

func TestSelectSensors_VoltageFilter(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	// HC-SR04 needs 4.5V minimum; a 3.3V MCU cannot drive it, so the
	// distance requirement goes unfilled rather than mismatched.
	sel := db.Select(intent.HardwareIntent{
		Connectivity: []string{"WiFi"},
		Sensors:      []string{"temperature", "ultrasonic distance"},
	})
	require.Len(t, sel.Sensors, 1)
	assert.Equal(t, "temperature/humidity/pressure", sel.Sensors[0].SensorType)
}

func TestSelectSensors_DedupByPartNumber(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	// temperature and humidity both resolve to the BME280; it must
	// appear once.
	sel := db.Select(intent.HardwareIntent{
		Connectivity: []string{"WiFi"},
		Sensors:      []string{"temperature", "humidity"},
	})
	pns := map[string]int{}
	for _, s := range sel.Sensors {
		pns[s.PartNumber]++
	}
	for pn, n := range pns {
		assert.Equal(t, 1, n, "duplicate part %s", pn)
	}
}

func TestSelectRegulator_BatteryPrefersLowDropout(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	sel := db.Select(intent.HardwareIntent{
		Connectivity: []string{"WiFi"},
		PowerSource:  "LiPo battery",
	})
	require.Len(t, sel.Regulators, 1)
	assert.Equal(t, "MCP1700-3302E", sel.Regulators[0].PartNumber)
	assert.Equal(t, "MCP1700-3302E", sel.Power.Regulator)
}

func TestSelectRegulator_MainsPrefersHighCurrent(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	sel := db.Select(intent.HardwareIntent{
		Connectivity: []string{"WiFi"},
		PowerSource:  "12V DC",
	})
	require.Len(t, sel.Regulators, 1)
	assert.Equal(t, "TPS562200", sel.Regulators[0].PartNumber)
}

func TestGeneratePassives_I2CPullups(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	withI2C := db.Select(intent.HardwareIntent{
		Connectivity: []string{"WiFi"},
		Sensors:      []string{"temperature"},
	})
	var foundPullup bool
	for _, p := range withI2C.Passives {
		if p.PartNumber == "RC0402FR-074K7L" {
			foundPullup = true
		}
	}
	assert.True(t, foundPullup, "I2C sensor selected but no pull-ups generated")

	without := db.Select(intent.HardwareIntent{Connectivity: []string{"WiFi"}})
	for _, p := range without.Passives {
		assert.NotEqual(t, "RC0402FR-074K7L", p.PartNumber)
	}
}

func TestGeneratePassives_AlwaysDecoupling(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	sel := db.Select(intent.HardwareIntent{})
	require.GreaterOrEqual(t, len(sel.Passives), 2)
	assert.Equal(t, "GRM188R71C104KA01D", sel.Passives[0].PartNumber)
	assert.Contains(t, sel.Passives[0].Purpose, "x1")
}

func TestGenerateProtection_BatteryOnly(t *testing.T) {
	db, err := Load()
	require.NoError(t, err)

	battery := db.Select(intent.HardwareIntent{PowerSource: "battery"})
	require.Len(t, battery.Protection, 1)
	assert.Equal(t, "MBR0520LT1G", battery.Protection[0].PartNumber)

	mains := db.Select(intent.HardwareIntent{PowerSource: "AC mains"})
	assert.Empty(t, mains.Protection)

	unspecified := db.Select(intent.HardwareIntent{})
	assert.Empty(t, unspecified.Protection)
	assert.Equal(t, "unspecified", unspecified.Power.Battery)
}
