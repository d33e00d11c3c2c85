package audit

// Entry is one line in the hash-chained JSONL decision log. All fields
// are scalars or structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing. Recipient is the
// masked form of the user principal; Summary carries only masked text.
type Entry struct {
	Timestamp   string   `json:"ts"`
	DeliveryID  string   `json:"delivery_id"`
	IncidentKey string   `json:"incident_key"`
	Source      string   `json:"source"`
	Recipient   string   `json:"recipient"`
	Claim       string   `json:"claim"`
	State       string   `json:"state,omitempty"`
	Action      string   `json:"action,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	Score       int      `json:"score,omitempty"`
	Ordinal     int      `json:"ordinal,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Error       string   `json:"error,omitempty"`
	ConfigHash  string   `json:"config_hash,omitempty"`
	PrevHash    string   `json:"prev_hash"`
}
