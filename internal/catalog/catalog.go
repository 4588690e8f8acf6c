// Package catalog holds the approved component database and the
// selection engine that matches a parsed hardware intent against it.
package catalog

import (
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/circuit-studio/engine/internal/intent"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

//go:embed data/approved_components.json
var componentDB []byte

type MCU struct {
	PartNumber       string   `json:"part_number"`
	Manufacturer     string   `json:"manufacturer"`
	Core             string   `json:"core"`
	ClockMHz         float64  `json:"clock_mhz"`
	FlashKB          int      `json:"flash_kb"`
	RAMKB            int      `json:"ram_kb"`
	GPIOCount        int      `json:"gpio_count"`
	OperatingVoltage float64  `json:"operating_voltage"`
	Interfaces       []string `json:"interfaces"`
	Wireless         []string `json:"wireless"`
	Package          string   `json:"package"`
	UnitPrice        float64  `json:"unit_price"`
}

type Sensor struct {
	PartNumber          string  `json:"part_number"`
	Manufacturer        string  `json:"manufacturer"`
	SensorType          string  `json:"sensor_type"`
	Interface           string  `json:"interface"`
	OperatingVoltageMin float64 `json:"operating_voltage_min"`
	OperatingVoltageMax float64 `json:"operating_voltage_max"`
	Package             string  `json:"package"`
	UnitPrice           float64 `json:"unit_price"`
}

type Regulator struct {
	PartNumber   string  `json:"part_number"`
	Manufacturer string  `json:"manufacturer"`
	Topology     string  `json:"topology"`
	VinMin       float64 `json:"vin_min"`
	VinMax       float64 `json:"vin_max"`
	Vout         float64 `json:"vout"`
	MaxCurrentMA float64 `json:"max_current_ma"`
	DropoutV     float64 `json:"dropout_v"`
	Package      string  `json:"package"`
	UnitPrice    float64 `json:"unit_price"`
}

type Passive struct {
	PartNumber    string  `json:"part_number"`
	ComponentType string  `json:"component_type"`
	Value         string  `json:"value"`
	VoltageRating string  `json:"voltage_rating,omitempty"`
	Package       string  `json:"package"`
	UnitPrice     float64 `json:"unit_price"`
	Purpose       string  `json:"purpose"`
}

type Protection struct {
	PartNumber    string  `json:"part_number"`
	ComponentType string  `json:"component_type"`
	Rating        string  `json:"rating"`
	Package       string  `json:"package"`
	UnitPrice     float64 `json:"unit_price"`
	Purpose       string  `json:"purpose"`
}

// PowerInfo summarizes the power tree of a selection.
type PowerInfo struct {
	Battery    string `json:"battery"`
	Regulator  string `json:"regulator,omitempty"`
	ChargingIC string `json:"charging_ic,omitempty"`
}

// Selection is the full output of component matching, the input to
// circuit generation.
type Selection struct {
	MCU        MCU          `json:"mcu"`
	Sensors    []Sensor     `json:"sensors"`
	Power      PowerInfo    `json:"power"`
	Regulators []Regulator  `json:"regulators"`
	Passives   []Passive    `json:"passives"`
	Protection []Protection `json:"protection"`
}

// Database is the approved parts list. Each Load call parses the
// embedded JSON snapshot into a fresh value the caller owns; there is
// no process-global copy, so callers decide the sharing and lifetime.
type Database struct {
	MCUs       []MCU       `json:"mcus"`
	Sensors    []Sensor    `json:"sensors"`
	Regulators []Regulator `json:"regulators"`
}

// Load parses the embedded component database into a new Database.
func Load() (*Database, error) {
	var db Database
	if err := json.Unmarshal(componentDB, &db); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "failed to parse component database")
	}
	return &db, nil
}

// PartRecord is a category-agnostic view of a database entry, used by
// BOM generation for package and pricing lookups.
type PartRecord struct {
	Category  string
	Package   string
	UnitPrice float64
}

// Find looks a part number up across every category.
func (db *Database) Find(partNumber string) (PartRecord, bool) {
	for _, m := range db.MCUs {
		if m.PartNumber == partNumber {
			return PartRecord{Category: "mcu", Package: m.Package, UnitPrice: m.UnitPrice}, true
		}
	}
	for _, s := range db.Sensors {
		if s.PartNumber == partNumber {
			return PartRecord{Category: "sensor", Package: s.Package, UnitPrice: s.UnitPrice}, true
		}
	}
	for _, r := range db.Regulators {
		if r.PartNumber == partNumber {
			return PartRecord{Category: "regulator", Package: r.Package, UnitPrice: r.UnitPrice}, true
		}
	}
	return PartRecord{}, false
}

func (db *Database) selectMCU(in intent.HardwareIntent) MCU {
	bestScore := -1
	var best MCU

	for _, mcu := range db.MCUs {
		score := 0

		wireless := make(map[string]bool, len(mcu.Wireless)*2)
		for _, w := range mcu.Wireless {
			lw := strings.ToLower(w)
			wireless[lw] = true
			wireless[strings.ReplaceAll(lw, " ", "")] = true
		}
		for _, conn := range in.Connectivity {
			if wireless[strings.ToLower(conn)] {
				score += 10
			}
		}

		ifaces := make(map[string]bool, len(mcu.Interfaces))
		for _, i := range mcu.Interfaces {
			ifaces[strings.ToLower(i)] = true
		}
		for _, proto := range in.CommunicationProtocol {
			if ifaces[strings.ToLower(proto)] {
				score += 5
			}
		}

		if strings.Contains(strings.ToLower(in.PowerSource), "battery") && mcu.OperatingVoltage <= 3.3 {
			score += 3
		}

		if in.Constraints.Budget != "" {
			if budget, err := strconv.ParseFloat(strings.TrimPrefix(in.Constraints.Budget, "$"), 64); err == nil {
				if mcu.UnitPrice < budget*0.3 {
					score += 2
				}
			}
		}

		if score > bestScore {
			bestScore = score
			best = mcu
		}
	}
	return best
}

// selectSensors matches required sensor types against the catalog,
// keeping only parts that run at the MCU rail voltage. One part per
// requirement, deduplicated by part number.
func (db *Database) selectSensors(in intent.HardwareIntent, mcuVoltage float64) []Sensor {
	var selected []Sensor
	seen := map[string]bool{}

	for _, required := range in.Sensors {
		reqLower := strings.ToLower(required)
		for _, s := range db.Sensors {
			if seen[s.PartNumber] {
				continue
			}
			st := strings.ToLower(s.SensorType)
			if !strings.Contains(st, reqLower) && !strings.Contains(reqLower, st) {
				continue
			}
			if s.OperatingVoltageMin <= mcuVoltage && mcuVoltage <= s.OperatingVoltageMax {
				selected = append(selected, s)
				seen[s.PartNumber] = true
				break
			}
		}
	}
	return selected
}

// selectRegulator picks a regulator whose output matches the MCU rail.
// Battery designs get the lowest-dropout candidate, mains designs the
// highest-current one.
func (db *Database) selectRegulator(in intent.HardwareIntent, mcuVoltage float64) []Regulator {
	var candidates []Regulator
	for _, r := range db.Regulators {
		d := r.Vout - mcuVoltage
		if d < 0 {
			d = -d
		}
		if d < 0.1 {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	isBattery := strings.Contains(strings.ToLower(in.PowerSource), "battery")
	for _, c := range candidates[1:] {
		if isBattery {
			if c.DropoutV < best.DropoutV {
				best = c
			}
		} else if c.MaxCurrentMA > best.MaxCurrentMA {
			best = c
		}
	}
	return []Regulator{best}
}

func generatePassives(sensors []Sensor, in intent.HardwareIntent) []Passive {
	icCount := 1 + len(sensors)

	passives := []Passive{
		{
			PartNumber:    "GRM188R71C104KA01D",
			ComponentType: "capacitor",
			Value:         "100nF",
			VoltageRating: "16V",
			Package:       "0402",
			UnitPrice:     0.01,
			Purpose:       "decoupling capacitor (x" + strconv.Itoa(icCount) + ")",
		},
		{
			PartNumber:    "GRM188R61A106ME69D",
			ComponentType: "capacitor",
			Value:         "10uF",
			VoltageRating: "10V",
			Package:       "0402",
			UnitPrice:     0.02,
			Purpose:       "bulk decoupling for MCU VCC",
		},
	}

	hasI2C := false
	for _, p := range in.CommunicationProtocol {
		if strings.Contains(strings.ToLower(p), "i2c") {
			hasI2C = true
		}
	}
	for _, s := range sensors {
		if strings.EqualFold(s.Interface, "i2c") {
			hasI2C = true
		}
	}
	if hasI2C {
		passives = append(passives, Passive{
			PartNumber:    "RC0402FR-074K7L",
			ComponentType: "resistor",
			Value:         "4.7kΩ",
			Package:       "0402",
			UnitPrice:     0.01,
			Purpose:       "I2C pull-up resistor (x2, SDA+SCL)",
		})
	}
	return passives
}

func generateProtection(in intent.HardwareIntent) []Protection {
	if !strings.Contains(strings.ToLower(in.PowerSource), "battery") {
		return nil
	}
	return []Protection{{
		PartNumber:    "MBR0520LT1G",
		ComponentType: "Schottky diode",
		Rating:        "20V 0.5A",
		Package:       "SOD-123",
		UnitPrice:     0.15,
		Purpose:       "reverse polarity protection",
	}}
}

// Select matches an intent against this database.
func (db *Database) Select(in intent.HardwareIntent) *Selection {
	mcu := db.selectMCU(in)
	sensors := db.selectSensors(in, mcu.OperatingVoltage)
	regulators := db.selectRegulator(in, mcu.OperatingVoltage)

	power := PowerInfo{Battery: in.PowerSource}
	if power.Battery == "" {
		power.Battery = "unspecified"
	}
	if len(regulators) > 0 {
		power.Regulator = regulators[0].PartNumber
	}

	return &Selection{
		MCU:        mcu,
		Sensors:    sensors,
		Power:      power,
		Regulators: regulators,
		Passives:   generatePassives(sensors, in),
		Protection: generateProtection(in),
	}
}
