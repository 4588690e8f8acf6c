// Package validation is the deterministic rule-based circuit checker.
//
// Seven independent checks inspect a circuit graph for electrical
// safety and manufacturability violations:
//
//  1. Voltage compatibility between rails and consumers
//  2. Ground continuity for every IC
//  3. Short circuit detection (VCC-GND bridges)
//  4. GPIO overcurrent (actuators and high-draw loads on GPIO)
//  5. Regulator dropout voltage compliance
//  6. Decoupling capacitor coverage per IC
//  7. Pull-up resistor presence on I2C buses
//
// Validation is pure: identical graph and check set always yield
// identical issue lists in identical order.
package validation

import "github.com/circuit-studio/engine/internal/circuit"

// Check names, usable to select a subset of checks by identifier.
const (
	CheckNameVoltage    = "voltage_compatibility"
	CheckNameGround     = "ground_continuity"
	CheckNameShorts     = "short_circuits"
	CheckNameGPIO       = "gpio_overcurrent"
	CheckNameDropout    = "regulator_dropout"
	CheckNameDecoupling = "decoupling_caps"
	CheckNamePullups    = "pull_up_resistors"
)

// AllChecks returns the full registry in its fixed, documented order:
// voltage, ground, short-circuit, GPIO, dropout, decoupling, pull-ups.
// The order is part of the contract so issue ordering and the
// passed/total counters are reproducible.
func AllChecks() []Check {
	return []Check{
		{Name: CheckNameVoltage, Run: CheckVoltageCompatibility},
		{Name: CheckNameGround, Run: CheckGroundContinuity},
		{Name: CheckNameShorts, Run: CheckShortCircuits},
		{Name: CheckNameGPIO, Run: CheckGPIOOvercurrent},
		{Name: CheckNameDropout, Run: CheckRegulatorDropout},
		{Name: CheckNameDecoupling, Run: CheckDecouplingCaps},
		{Name: CheckNamePullups, Run: CheckPullUpResistors},
	}
}

// ChecksByName resolves check identifiers against the registry,
// preserving registry order and ignoring unknown names.
func ChecksByName(names []string) []Check {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Check
	for _, c := range AllChecks() {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// Validate runs the given checks (all of them when none are provided)
// against the graph and aggregates their issues. A check passes iff it
// produced zero error-severity issues; its warnings do not count
// against it.
func Validate(g *circuit.Graph, checks ...Check) *Result {
	if len(checks) == 0 {
		checks = AllChecks()
	}

	res := &Result{
		Errors:      []Issue{},
		Warnings:    []Issue{},
		ChecksTotal: len(checks),
	}

	for _, check := range checks {
		clean := true
		for _, issue := range check.Run(g) {
			if issue.Severity == SeverityError {
				res.Errors = append(res.Errors, issue)
				clean = false
			} else {
				res.Warnings = append(res.Warnings, issue)
			}
		}
		if clean {
			res.ChecksPassed++
		}
	}

	if len(res.Errors) == 0 {
		res.Status = StatusValid
	} else {
		res.Status = StatusInvalid
	}
	return res
}
