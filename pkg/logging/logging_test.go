// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(tt.level, true)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !log.Core().Enabled(tt.expected) {
				t.Errorf("Level %s should be enabled", tt.expected)
			}
			if tt.expected > zapcore.DebugLevel && log.Core().Enabled(tt.expected-1) {
				t.Errorf("Level %s should be disabled", tt.expected-1)
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("chatty", false); err == nil {
		t.Error("Invalid level should fail")
	}
}

func TestBus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Bus(zap.New(core), "exp").Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["bus"] != "exp" {
		t.Errorf("Expected bus=exp field, got %v", entries[0].ContextMap())
	}
}
