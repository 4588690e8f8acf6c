// Package intent extracts structured hardware requirements from
// natural-language device descriptions. Rule-based keyword and regex
// matching, no AI involved.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Constraints captures budget/size/battery-life limits found in a
// description. Empty fields mean the description did not mention them.
type Constraints struct {
	Budget      string `json:"budget,omitempty"`
	Size        string `json:"size,omitempty"`
	BatteryLife string `json:"battery_life,omitempty"`
}

// HardwareIntent is the structured output of a parse, consumed by
// component selection.
type HardwareIntent struct {
	DeviceType            string      `json:"device_type"`
	Connectivity          []string    `json:"connectivity"`
	PowerSource           string      `json:"power_source,omitempty"`
	Environment           string      `json:"environment,omitempty"`
	Sensors               []string    `json:"sensors"`
	Actuators             []string    `json:"actuators"`
	Constraints           Constraints `json:"constraints"`
	CommunicationProtocol []string    `json:"communication_protocol"`
	DataLogging           bool        `json:"data_logging"`
}

// ParseResult pairs the extracted intent with a confidence score in
// [0,1] derived from how many fields the description yielded.
type ParseResult struct {
	Intent     HardwareIntent `json:"intent"`
	Confidence float64        `json:"confidence"`
	RawInput   string         `json:"raw_input"`
}

// keywordEntry keeps dictionary iteration deterministic; Go map
// iteration order would make parse output unstable between runs.
type keywordEntry struct {
	keyword string
	value   string
}

var sensorKeywords = []keywordEntry{
	{"temperature", "temperature"},
	{"temp", "temperature"},
	{"humidity", "humidity"},
	{"pressure", "pressure"},
	{"barometric", "pressure"},
	{"motion", "IMU/accelerometer"},
	{"accelerometer", "IMU/accelerometer"},
	{"gyroscope", "IMU/gyroscope"},
	{"gps", "GPS"},
	{"location", "GPS"},
	{"light", "ambient light"},
	{"lux", "ambient light"},
	{"soil moisture", "soil moisture"},
	{"moisture", "soil moisture"},
	{"gas", "gas sensor"},
	{"co2", "CO2 sensor"},
	{"pm2.5", "particulate sensor"},
	{"air quality", "air quality sensor"},
	{"ultrasonic", "ultrasonic distance"},
	{"distance", "distance sensor"},
	{"current", "current sensor"},
	{"voltage", "voltage sensor"},
	{"pir", "PIR motion sensor"},
	{"camera", "camera module"},
	{"microphone", "microphone"},
}

var actuatorKeywords = []keywordEntry{
	{"motor", "DC motor"},
	{"servo", "servo motor"},
	{"stepper", "stepper motor"},
	{"relay", "relay"},
	{"valve", "solenoid valve"},
	{"solenoid", "solenoid"},
	{"pump", "pump"},
	{"led", "LED"},
	{"display", "display"},
	{"oled", "OLED display"},
	{"lcd", "LCD display"},
	{"buzzer", "buzzer"},
	{"speaker", "speaker"},
	{"fan", "fan"},
	{"heater", "heater"},
	{"lock", "electronic lock"},
}

var connectivityKeywords = []keywordEntry{
	{"wifi", "WiFi"},
	{"wi-fi", "WiFi"},
	{"bluetooth", "Bluetooth"},
	{"ble", "BLE"},
	{"lorawan", "LoRaWAN"},
	{"lora", "LoRa"},
	{"zigbee", "Zigbee"},
	{"cellular", "Cellular"},
	{"4g", "4G LTE"},
	{"5g", "5G"},
	{"nb-iot", "NB-IoT"},
	{"ethernet", "Ethernet"},
	{"usb", "USB"},
	{"can", "CAN bus"},
	{"modbus", "Modbus"},
	{"mqtt", "MQTT"},
}

var protocolKeywords = []keywordEntry{
	{"i2c", "I2C"},
	{"spi", "SPI"},
	{"uart", "UART"},
	{"onewire", "1-Wire"},
	{"1-wire", "1-Wire"},
	{"analog", "ADC"},
	{"adc", "ADC"},
	{"pwm", "PWM"},
	{"gpio", "GPIO"},
	{"i2s", "I2S"},
	{"sdio", "SDIO"},
}

var powerKeywords = []keywordEntry{
	{"solar", "solar powered"},
	{"lipo", "LiPo battery"},
	{"li-ion", "Li-Ion battery"},
	{"lithium", "lithium battery"},
	{"coin cell", "coin cell (CR2032)"},
	{"aaa", "AAA batteries"},
	{"battery", "battery"},
	{"usb powered", "USB powered"},
	{"mains", "AC mains"},
	{"5v", "5V DC"},
	{"12v", "12V DC"},
	{"24v", "24V DC"},
	{"power supply", "external power supply"},
	{"poe", "Power over Ethernet"},
}

var environmentKeywords = []keywordEntry{
	{"outdoor", "outdoor"},
	{"indoor", "indoor"},
	{"underwater", "underwater"},
	{"industrial", "industrial"},
	{"harsh", "harsh/industrial"},
	{"wearable", "wearable"},
	{"automotive", "automotive"},
	{"medical", "medical"},
	{"agricultural", "agricultural"},
	{"greenhouse", "greenhouse"},
}

var devicePatterns = []struct {
	re         *regexp.Regexp
	deviceType string
}{
	{regexp.MustCompile(`weather\s*station`), "weather_station"},
	{regexp.MustCompile(`irrigation|water.*control`), "irrigation_controller"},
	{regexp.MustCompile(`tracker|tracking`), "asset_tracker"},
	{regexp.MustCompile(`monitor|monitoring`), "environmental_monitor"},
	{regexp.MustCompile(`robot`), "robot"},
	{regexp.MustCompile(`drone`), "drone"},
	{regexp.MustCompile(`gateway`), "IoT_gateway"},
	{regexp.MustCompile(`smart\s*lock`), "smart_lock"},
	{regexp.MustCompile(`thermostat`), "smart_thermostat"},
	{regexp.MustCompile(`alarm|security`), "security_system"},
	{regexp.MustCompile(`wearable|watch|band`), "wearable_device"},
	{regexp.MustCompile(`data\s*logger`), "data_logger"},
	{regexp.MustCompile(`controller`), "controller"},
	{regexp.MustCompile(`sensor\s*node`), "sensor_node"},
}

var (
	budgetRe  = regexp.MustCompile(`(?i)(?:under|below|less than|budget|cost)\s*\$?(\d+)`)
	sizeRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:cm|mm)\s*[x×]\s*(\d+)\s*(?:cm|mm)`)
	battery1  = regexp.MustCompile(`(?i)(\d+)\s*(month|year|week|day|hour)s?\s*(?:battery|on battery|battery\s*life)`)
	battery2  = regexp.MustCompile(`(?i)(?:last|run|operate)\s*(?:for\s*)?(?:at\s*least\s*)?(\d+)\s*(month|year|week|day|hour)s?`)
	loggingKs = []string{"log", "logging", "record", "store", "sd card", "flash", "eeprom", "save data"}
)

func extractMatches(text string, dict []keywordEntry) []string {
	lower := strings.ToLower(text)
	var found []string
	seen := map[string]bool{}
	for _, e := range dict {
		if strings.Contains(lower, e.keyword) && !seen[e.value] {
			found = append(found, e.value)
			seen[e.value] = true
		}
	}
	return found
}

func extractSingle(text string, dict []keywordEntry) string {
	if m := extractMatches(text, dict); len(m) > 0 {
		return m[0]
	}
	return ""
}

func detectDeviceType(text string) string {
	lower := strings.ToLower(text)
	for _, p := range devicePatterns {
		if p.re.MatchString(lower) {
			return p.deviceType
		}
	}
	return "embedded_device"
}

func extractConstraints(text string) Constraints {
	var c Constraints
	if m := budgetRe.FindStringSubmatch(text); m != nil {
		c.Budget = "$" + m[1]
	}
	if m := sizeRe.FindString(text); m != "" {
		c.Size = m
	}
	m := battery1.FindStringSubmatch(text)
	if m == nil {
		m = battery2.FindStringSubmatch(text)
	}
	if m != nil {
		c.BatteryLife = fmt.Sprintf("%s %ss", m[1], strings.ToLower(m[2]))
	}
	return c
}

func detectDataLogging(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range loggingKs {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Parse extracts a HardwareIntent from a free-form description. The
// confidence heuristic rewards descriptions that fill more fields.
func Parse(description string) ParseResult {
	in := HardwareIntent{
		DeviceType:            detectDeviceType(description),
		Connectivity:          extractMatches(description, connectivityKeywords),
		PowerSource:           extractSingle(description, powerKeywords),
		Environment:           extractSingle(description, environmentKeywords),
		Sensors:               extractMatches(description, sensorKeywords),
		Actuators:             extractMatches(description, actuatorKeywords),
		Constraints:           extractConstraints(description),
		CommunicationProtocol: extractMatches(description, protocolKeywords),
		DataLogging:           detectDataLogging(description),
	}

	fields := 0
	for _, present := range []bool{
		in.DeviceType != "",
		len(in.Sensors) > 0,
		len(in.Actuators) > 0,
		len(in.Connectivity) > 0,
		in.PowerSource != "",
		in.Environment != "",
	} {
		if present {
			fields++
		}
	}
	confidence := float64(fields)/6.0*0.9 + 0.1
	if confidence > 1.0 {
		confidence = 1.0
	}

	return ParseResult{
		Intent:     in,
		Confidence: float64(int(confidence*100+0.5)) / 100,
		RawInput:   description,
	}
}
