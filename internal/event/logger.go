package event

type key struct {
	cat Category
	id  ID
}

// messages holds the log line of every known event. Payload details are
// added as attributes by LogHandler.
var messages = map[key]string{
	{CategoryAgent, InitDone}:         "Agent initialised.",
	{CategoryAgent, ClaimStarted}:     "Claim started.",
	{CategoryAgent, ClaimSuccessful}:  "Claim successful.",
	{CategoryAgent, ClaimFailed}:      "Claim failed.",
	{CategoryAgent, LocalCtrlStarted}: "Local control started.",
	{CategoryAgent, LocalCtrlStopped}: "Local control stopped.",

	{CategoryConnectivity, Connected}:    "MQTT connected.",
	{CategoryConnectivity, Disconnected}: "MQTT disconnected.",
	{CategoryConnectivity, Published}:    "MQTT published.",

	{CategoryProvisioning, QRDisplay}:   "Provisioning QR.",
	{CategoryProvisioning, ProvTimeout}: "Provisioning timed out. Please reboot.",
	{CategoryProvisioning, ProvRestart}: "Provisioning has restarted due to failures.",

	{CategoryOTA, OTAStarting}:      "Starting OTA.",
	{CategoryOTA, OTAInProgress}:    "OTA is in progress.",
	{CategoryOTA, OTASuccessful}:    "OTA successful.",
	{CategoryOTA, OTAFailed}:        "OTA failed.",
	{CategoryOTA, OTARejected}:      "OTA rejected.",
	{CategoryOTA, OTADelayed}:       "OTA delayed.",
	{CategoryOTA, OTARequestReboot}: "Firmware image downloaded. Please reboot your device to apply the upgrade.",

	{CategorySystem, Reboot}:       "Rebooting.",
	{CategorySystem, WiFiReset}:    "Wi-Fi credentials reset.",
	{CategorySystem, FactoryReset}: "Node reset to factory defaults.",
}

// LogHandler returns a handler that logs each event in a human-readable
// form. Subscribe it to every category to get a full lifecycle log.
func LogHandler(logger Logger) Handler {
	return func(e Event) {
		k := key{e.Category, e.ID}
		msg, ok := messages[k]
		if !ok {
			logger.Warn("unhandled event", "category", e.Category, "id", e.ID)
			return
		}
		logger.Info(msg, append([]any{"category", e.Category, "id", e.ID}, payloadAttrs(k, e.Payload)...)...)
	}
}

// payloadAttrs returns the log attributes of a payload, only when it is
// the type the event carries.
func payloadAttrs(k key, payload any) []any {
	switch k {
	case key{CategorySystem, Reboot}:
		if p, ok := payload.(RebootPayload); ok {
			return []any{"delay", p.Delay}
		}
	case key{CategoryConnectivity, Published}:
		if p, ok := payload.(PublishedPayload); ok {
			return []any{"msg_id", p.MessageID}
		}
	case key{CategoryProvisioning, QRDisplay}:
		if p, ok := payload.(QRPayload); ok {
			return []any{"qr", p.Data}
		}
	}
	return nil
}
