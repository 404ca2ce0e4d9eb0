package models

import "time"

// FireAlertTopic is the MQTT topic alerts are published on
const FireAlertTopic = "building/fire-alert"

// AlertRecord is the payload handed to the alert transport
type AlertRecord struct {
	Location          string   `json:"location"`
	Temperature       float64  `json:"temperature"`
	SmokeLevel        int      `json:"smoke_level"`
	AffectedLocations []string `json:"cluster"`
}

// DispatchedAlert is an alert together with its cycle context, as handed to sinks
type DispatchedAlert struct {
	CycleID   string
	Timestamp time.Time
	Escalated bool // Location passed the aggregate confirmation rule
	Record    AlertRecord
	Payload   []byte // Encoded Record
}
