package domain

import "time"

const (
	SOURCE_USER   = "user"
	SOURCE_IMPORT = "import"

	RESULT_TYPE_FORM         = "form"
	RESULT_TYPE_ABORT        = "abort"
	RESULT_TYPE_CREATE_ENTRY = "create_entry"
)

// ConfigEntry is a persisted station configuration. Hosts are unique.
type ConfigEntry struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Host      string    `json:"host"`
	Name      string    `json:"name,omitempty"`
	Source    string    `json:"source"`
	Data      EntryData `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

type EntryData struct {
	Host                string   `json:"host"`
	Name                string   `json:"name,omitempty"`
	MonitoredConditions []string `json:"monitored_conditions,omitempty"`
	WindUnit            string   `json:"wind_unit,omitempty"`
}

// ImportConfig carries one legacy platform block.
type ImportConfig struct {
	Host                string   `yaml:"host"`
	Name                string   `yaml:"name"`
	MonitoredConditions []string `yaml:"monitored_conditions"`
	WindUnit            string   `yaml:"wind_unit"`
}

// FlowResult is the outcome of one setup flow step.
type FlowResult struct {
	FlowId string            `json:"flow_id"`
	Type   string            `json:"type"`
	StepId string            `json:"step_id,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
	Title  string            `json:"title,omitempty"`
	Source string            `json:"-"`
	Data   *EntryData        `json:"data,omitempty"`
	Entry  *ConfigEntry      `json:"entry,omitempty"`
}
