package validation

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Status is the overall verdict of a validation run.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
)

// Issue codes emitted by the check library. Error codes carry the E_
// prefix and force INVALID status; W_ codes are advisory.
const (
	CodeUnknownConsumer     = "E_UNKNOWN_CONSUMER"
	CodeVoltageMismatch     = "E_VOLTAGE_MISMATCH"
	CodeMissingGround       = "E_MISSING_GROUND"
	CodeShortCircuit        = "E_SHORT_CIRCUIT"
	CodeGPIOOvercurrent     = "E_GPIO_OVERCURRENT"
	CodeDropoutViolation    = "E_DROPOUT_VIOLATION"
	CodeVinBelowMin         = "E_VIN_BELOW_MIN"
	CodeGPIOOvercurrentRisk = "W_GPIO_OVERCURRENT_RISK"
	CodeMissingDecoupling   = "W_MISSING_DECOUPLING"
	CodeMissingPullupSDA    = "W_MISSING_I2C_PULLUP_SDA"
	CodeMissingPullupSCL    = "W_MISSING_I2C_PULLUP_SCL"
)

// Issue is one violation found by a check.
type Issue struct {
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	NodeIDs    []string `json:"node_ids"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Result aggregates the issues of a validation run. Status is VALID
// iff Errors is empty; warnings never affect it. ChecksPassed counts
// checks that produced zero error-severity issues, so callers must
// inspect Errors for pass/fail rather than the counters alone.
type Result struct {
	Status       Status  `json:"status"`
	Errors       []Issue `json:"errors"`
	Warnings     []Issue `json:"warnings"`
	ChecksPassed int     `json:"checks_passed"`
	ChecksTotal  int     `json:"checks_total"`
}

// Valid reports whether the run produced no errors.
func (r *Result) Valid() bool { return r.Status == StatusValid }
