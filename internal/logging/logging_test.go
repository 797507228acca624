package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	if err := Setup("debug", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", log.StandardLogger().Formatter)
	}

	if err := Setup("warn", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := log.StandardLogger().Formatter.(*log.TextFormatter); !ok {
		t.Errorf("expected text formatter, got %T", log.StandardLogger().Formatter)
	}

	if err := Setup("loud", "text"); err == nil {
		t.Error("expected invalid level to fail")
	}
	if err := Setup("info", "xml"); err == nil {
		t.Error("expected invalid format to fail")
	}
}
