// Package audit records who changed residents, payments and settings.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	appctx "rwpay/internal/core/context"
	"rwpay/internal/core/id"
	"rwpay/pkg/logger"
)

type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionConfirm     Action = "confirm"
	ActionMarkPaid    Action = "mark_paid"
	ActionMarkOverdue Action = "mark_overdue"
)

// Entry is one row of the activity log.
type Entry struct {
	ID        id.ID           `json:"id"`
	Action    Action          `json:"action"`
	TableName string          `json:"tableName"`
	RecordID  string          `json:"recordId"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	UserID    *id.ID          `json:"userId,omitempty"`
	IPAddress string          `json:"ipAddress,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Recorder persists and reads activity entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, tableName, recordID string, limit int) ([]Entry, error)
}

// NewEntry builds an entry whose changes are the field diff between before and after.
// Either state may be nil (create has no before, delete has no after).
func NewEntry(action Action, tableName, recordID string, before, after any) (Entry, error) {
	oldState, err := toMap(before)
	if err != nil {
		return Entry{}, err
	}
	newState, err := toMap(after)
	if err != nil {
		return Entry{}, err
	}

	changes, err := json.Marshal(Diff(oldState, newState))
	if err != nil {
		return Entry{}, fmt.Errorf("marshal changes: %w", err)
	}

	return Entry{
		Action:    action,
		TableName: tableName,
		RecordID:  recordID,
		Changes:   changes,
	}, nil
}

// Enrich copies the acting user and client details from ctx.
func Enrich(ctx context.Context, e *Entry) {
	u := appctx.GetUser(ctx)
	if u == nil {
		return
	}
	if uid, err := id.Parse(u.UserID); err == nil {
		e.UserID = &uid
	}
	e.IPAddress = u.IPAddress
	e.UserAgent = u.UserAgent
}

// Log builds, enriches and records an entry. Failures are logged, not returned:
// the audited change has already been committed.
func Log(ctx context.Context, rec Recorder, action Action, tableName, recordID string, before, after any) {
	if rec == nil {
		return
	}
	entry, err := NewEntry(action, tableName, recordID, before, after)
	if err == nil {
		Enrich(ctx, &entry)
		err = rec.Record(ctx, entry)
	}
	if err != nil {
		logger.Warn(ctx, "activity log write failed",
			"table", tableName, "record_id", recordID, "action", action, "error", err)
	}
}

// Diff returns {field: {old, new}} for every field that differs.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

func toMap(v any) (map[string]any, error) {
	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil()) {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return out, nil
}
