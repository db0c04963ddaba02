package client

// Status is a point-in-time summary of the runtime.
type Status struct {
	UserID   string      `json:"userId" yaml:"userId"`
	Online   bool        `json:"online" yaml:"online"`
	Pending  int         `json:"pending" yaml:"pending"`
	Syncing  bool        `json:"syncing" yaml:"syncing"`
	Degraded Degradation `json:"degraded" yaml:"degraded"`
}

// Degradation reports which durable stores failed and are running in
// memory.
type Degradation struct {
	Queue bool `json:"queue" yaml:"queue"`
	Cache bool `json:"cache" yaml:"cache"`
}
