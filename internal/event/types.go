package event

import (
	"slices"
	"time"
)

// Category groups related lifecycle events.
type Category string

// Event categories.
const (
	CategoryAgent        Category = "agent"
	CategoryConnectivity Category = "connectivity"
	CategoryProvisioning Category = "provisioning"
	CategoryOTA          Category = "ota"
	CategorySystem       Category = "system"
)

// ID identifies an event within its category.
type ID string

// Agent events.
const (
	InitDone         ID = "init_done"
	ClaimStarted     ID = "claim_started"
	ClaimSuccessful  ID = "claim_successful"
	ClaimFailed      ID = "claim_failed"
	LocalCtrlStarted ID = "local_ctrl_started"
	LocalCtrlStopped ID = "local_ctrl_stopped"
)

// Connectivity events.
const (
	Connected    ID = "connected"
	Disconnected ID = "disconnected"
	Published    ID = "published"
)

// Provisioning events.
const (
	QRDisplay   ID = "qr_display"
	ProvTimeout ID = "prov_timeout"
	ProvRestart ID = "prov_restart"
)

// OTA events.
const (
	OTAStarting      ID = "starting"
	OTAInProgress    ID = "in_progress"
	OTASuccessful    ID = "successful"
	OTAFailed        ID = "failed"
	OTARejected      ID = "rejected"
	OTADelayed       ID = "delayed"
	OTARequestReboot ID = "request_reboot"
)

// System events.
const (
	Reboot       ID = "reboot"
	WiFiReset    ID = "wifi_reset"
	FactoryReset ID = "factory_reset"
)

// Event is a lifecycle notification. The bus does not retain events after
// delivery.
type Event struct {
	Category Category  `json:"category"`
	ID       ID        `json:"id"`
	Payload  any       `json:"payload,omitempty"`
	Time     time.Time `json:"time"`
}

// PublishedPayload accompanies connectivity/published.
type PublishedPayload struct {
	MessageID uint16 `json:"message_id"`
}

// QRPayload accompanies provisioning/qr_display.
type QRPayload struct {
	Data string `json:"data"`
}

// RebootPayload accompanies system/reboot.
type RebootPayload struct {
	Delay time.Duration `json:"delay"`
}

// known lists the valid ids of every category.
var known = map[Category][]ID{
	CategoryAgent:        {InitDone, ClaimStarted, ClaimSuccessful, ClaimFailed, LocalCtrlStarted, LocalCtrlStopped},
	CategoryConnectivity: {Connected, Disconnected, Published},
	CategoryProvisioning: {QRDisplay, ProvTimeout, ProvRestart},
	CategoryOTA:          {OTAStarting, OTAInProgress, OTASuccessful, OTAFailed, OTARejected, OTADelayed, OTARequestReboot},
	CategorySystem:       {Reboot, WiFiReset, FactoryReset},
}

// Categories returns every known category.
func Categories() []Category {
	return []Category{CategoryAgent, CategoryConnectivity, CategoryProvisioning, CategoryOTA, CategorySystem}
}

// Known reports whether (cat, id) is a valid event.
func Known(cat Category, id ID) bool {
	return slices.Contains(known[cat], id)
}

// knownCategory reports whether cat is a valid category.
func knownCategory(cat Category) bool {
	_, ok := known[cat]
	return ok
}
