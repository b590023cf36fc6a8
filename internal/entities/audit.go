package entities

import "encoding/json"

// AuditAction is the kind of operation an audit record describes.
type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionUpdate   AuditAction = "UPDATE"
	AuditActionDelete   AuditAction = "DELETE"
	AuditActionSignIn   AuditAction = "SIGN_IN"
	AuditActionSignUp   AuditAction = "SIGN_UP"
	AuditActionSignOut  AuditAction = "SIGN_OUT"
	AuditActionPageView AuditAction = "PAGE_VIEW"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete,
		AuditActionSignIn, AuditActionSignUp, AuditActionSignOut, AuditActionPageView:
		return true
	}
	return false
}

// Entity types recorded in audit logs.
const (
	AuditEntityBook       = "Book"
	AuditEntityUser       = "User"
	AuditEntityAuthor     = "Author"
	AuditEntityAgent      = "Agent"
	AuditEntitySettings   = "Settings"
	AuditEntityAuth       = "Auth"
	AuditEntityNavigation = "Navigation"
)

// AuditLog is an immutable record under SBOAPP/auditLogs/{id}.
type AuditLog struct {
	ID         string          `json:"id"`
	Action     AuditAction     `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	UserID     string          `json:"userId"`
	UserEmail  string          `json:"userEmail"`
	Timestamp  int64           `json:"timestamp"` // epoch milliseconds
	Details    string          `json:"details"`
	OldData    json.RawMessage `json:"oldData,omitempty"`
	NewData    json.RawMessage `json:"newData,omitempty"`
}

// Old decodes the before-snapshot into a generic map; nil when absent.
func (l AuditLog) Old() map[string]any {
	return decodeSnapshot(l.OldData)
}

// New decodes the after-snapshot into a generic map; nil when absent.
func (l AuditLog) New() map[string]any {
	return decodeSnapshot(l.NewData)
}

func decodeSnapshot(raw json.RawMessage) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
