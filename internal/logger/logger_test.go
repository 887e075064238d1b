package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" DEBUG ", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if Logger.GetLevel() != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, Logger.GetLevel())
			}
		})
	}
}

func TestWithBatch(t *testing.T) {
	entry := WithBatch("b-1")
	if entry.Data["batch_id"] != "b-1" {
		t.Errorf("Expected batch_id field, got %v", entry.Data)
	}
}
