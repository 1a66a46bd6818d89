// Package models defines the client-side view of tasks, scanned packages and
// the expected-package manifest.
package models

import "time"

// TaskType distinguishes the two courier run directions. Outgoing scans live
// in their own identifier namespace (see ApplySuffix).
type TaskType string

const (
	TaskTypeIncoming TaskType = "incoming"
	TaskTypeOutgoing TaskType = "outgoing"
)

// UserRef is the embedded author reference the gateway returns on populated
// task responses.
type UserRef struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Task is a read-mostly projection of a courier run as served by the gateway.
// Packages seeds the scan ledger when the scanning session opens.
type Task struct {
	ID           string    `json:"_id"`
	TaskID       string    `json:"task_id"`
	Type         TaskType  `json:"type"`
	IsOpen       bool      `json:"is_open"`
	Courier      string    `json:"courier"`
	Channel      string    `json:"channel"`
	VehicleNo    string    `json:"vehicle_no"`
	DelexName    string    `json:"delex_name"`
	DelexContact string    `json:"delex_contact"`
	CreatedBy    UserRef   `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	Packages     []Package `json:"packages"`
}

// Package is the gateway's wire representation of a persisted scanned package.
type Package struct {
	ID        string    `json:"_id"`
	PackageID string    `json:"package_id"`
	Status    string    `json:"status,omitempty"`
	Cancelled bool      `json:"cancelled"`
	Remarks   string    `json:"remarks,omitempty"`
	Task      string    `json:"task,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthUser holds the identity claims the session provider exposes to the
// console status line.
type AuthUser struct {
	Sub      string `json:"sub"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
