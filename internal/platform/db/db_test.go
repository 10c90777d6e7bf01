package db

import (
	"strings"
	"testing"
)

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect("postgres", ""); err == nil || !strings.Contains(err.Error(), "dsn is required") {
		t.Fatalf("expected dsn error, got %v", err)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect("oracle", "dsn"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

func TestConnectSQLiteInMemory(t *testing.T) {
	database, err := Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	var one int
	if err := database.DB.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("select: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}
