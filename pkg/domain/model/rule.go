package model

import "time"

// RuleRunStatus is the result state of a rule run
type RuleRunStatus string

const (
	RuleRunSucceeded RuleRunStatus = "succeeded"
	RuleRunFailed    RuleRunStatus = "failed"
)

// RuleRun is one execution of a rule against one webhook event
type RuleRun struct {
	ID             string    `json:"id"`
	InstallationID int64     `json:"installation_id"`
	DeliveryID     string    `json:"delivery_id"`
	Event          string    `json:"event"`
	Action         string    `json:"action,omitempty"`
	Repository     string    `json:"repository,omitempty"`
	Selector       string    `json:"selector"`
	Rule           string    `json:"rule"`
	EnvVars        []string  `json:"env_vars,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunReport is the outcome of a RuleRun
type RunReport struct {
	Run        RuleRun       `json:"run"`
	Status     RuleRunStatus `json:"status"`
	Message    string        `json:"message,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
