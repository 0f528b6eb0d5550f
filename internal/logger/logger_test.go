package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New(Options{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestNew_LevelAndFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "WARN", Format: "json", Out: buf})

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	output := buf.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("Expected info message to be filtered, got: %s", output)
	}
	if !strings.Contains(output, `"message":"kept"`) {
		t.Errorf("Expected JSON output with warn message, got: %s", output)
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := New(Options{Level: "chatty", Out: &bytes.Buffer{}})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"user_id": "123",
		"action":  "test",
	})
	log.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, `"user_id":"123"`) || !strings.Contains(output, `"action":"test"`) {
		t.Errorf("Expected output to contain fields, got: %s", output)
	}
}

func TestAuditLog_Record(t *testing.T) {
	buf := &bytes.Buffer{}
	audit := NewAuditLog(NewWithWriter(buf))

	audit.Record(context.Background(), domain.AuditEvent{
		UserID:    "u1",
		Operation: "transaction.add",
		Entity:    "transaction",
		EntityID:  "tx-1",
		Outcome:   domain.OutcomeSuccess,
		Changes:   map[string]any{"amount": "12.50"},
		At:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("audit output is not JSON: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{
		"level":     "info",
		"user_id":   "u1",
		"operation": "transaction.add",
		"entity_id": "tx-1",
		"outcome":   "success",
		"component": "audit",
	} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %q", k, rec[k], want)
		}
	}
	changes, _ := rec["changes"].(map[string]any)
	if changes["amount"] != "12.50" {
		t.Errorf("changes = %v", rec["changes"])
	}
}

func TestAuditLog_RecordFailureAtWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	audit := NewAuditLog(NewWithWriter(buf))

	audit.Record(context.Background(), domain.AuditEvent{
		UserID:    "u1",
		Operation: "template.delete",
		Outcome:   domain.OutcomeRejected,
		Err:       errors.New("template not found"),
	})

	output := buf.String()
	if !strings.Contains(output, `"level":"warn"`) || !strings.Contains(output, "template not found") {
		t.Errorf("Expected warn record with error, got: %s", output)
	}
}
