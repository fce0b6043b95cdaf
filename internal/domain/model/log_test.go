package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogEntry_WithField(t *testing.T) {
	tests := []struct {
		name   string
		entry  *LogEntry
		key    string
		value  interface{}
		verify func(*testing.T, *LogEntry)
	}{
		{
			name: "add outcome to empty entry",
			entry: &LogEntry{
				Fields: make(map[string]interface{}),
			},
			key:   "outcome",
			value: "match",
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "match", e.Fields["outcome"])
			},
		},
		{
			name: "add box number alongside existing fields",
			entry: &LogEntry{
				Fields: map[string]interface{}{
					"bar_code": "4006381333931",
				},
			},
			key:   "box_number",
			value: 5,
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "4006381333931", e.Fields["bar_code"])
				assert.Equal(t, 5, e.Fields["box_number"])
			},
		},
		{
			name: "overwrite a field",
			entry: &LogEntry{
				Fields: map[string]interface{}{
					"outcome": "queued",
				},
			},
			key:   "outcome",
			value: "match",
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "match", e.Fields["outcome"])
			},
		},
		{
			name: "audit entry keeps worker context",
			entry: &LogEntry{
				WorkerID:   "w-17",
				JobID:      "job-42",
				ActionType: "scan",
				Fields:     make(map[string]interface{}),
			},
			key:   "outcome",
			value: "match",
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "match", e.Fields["outcome"])
				assert.Equal(t, "w-17", e.WorkerID)
				assert.Equal(t, "scan", e.ActionType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.entry.WithField(tt.key, tt.value)
			assert.Equal(t, tt.entry, result)
			tt.verify(t, result)
		})
	}
}

func TestLogEntry_WithFields(t *testing.T) {
	tests := []struct {
		name   string
		entry  *LogEntry
		fields map[string]interface{}
		verify func(*testing.T, *LogEntry)
	}{
		{
			name: "scan outcome fields in one call",
			entry: &LogEntry{
				Fields: make(map[string]interface{}),
			},
			fields: map[string]interface{}{
				"outcome":    "match",
				"bar_code":   "4006381333931",
				"box_number": 5,
			},
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "match", e.Fields["outcome"])
				assert.Equal(t, "4006381333931", e.Fields["bar_code"])
				assert.Equal(t, 5, e.Fields["box_number"])
			},
		},
		{
			name: "merge with existing fields",
			entry: &LogEntry{
				Fields: map[string]interface{}{
					"session_id": "a3f1",
				},
			},
			fields: map[string]interface{}{
				"undone": 2,
			},
			verify: func(t *testing.T, e *LogEntry) {
				assert.Equal(t, "a3f1", e.Fields["session_id"])
				assert.Equal(t, 2, e.Fields["undone"])
			},
		},
		{
			name: "empty fields map",
			entry: &LogEntry{
				Fields: make(map[string]interface{}),
			},
			fields: map[string]interface{}{},
			verify: func(t *testing.T, e *LogEntry) {
				assert.Empty(t, e.Fields)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.entry.WithFields(tt.fields)
			assert.Equal(t, tt.entry, result)
			tt.verify(t, result)
		})
	}
}
