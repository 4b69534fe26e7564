package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

// NewConfig returns a config suited for tests; no files or environment are read.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:   "Masomo",
		Build:     "test",
		Env:       "TEST",
		Debug:     false,
		TestMode:  true,
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			Host:                      "localhost",
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Realtime: core.RealtimeConfig{
			PingInterval:     30 * time.Second,
			WriteWait:        time.Second,
			MaxMessageSize:   64 * 1024,
			SendBufferSize:   16,
			SessionCacheSize: 16,
			SessionCacheTTL:  time.Minute,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// RecordLogger is a core.Logger keeping every entry in memory.
// Safe to use from goroutines outliving the test.
type RecordLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*RecordLogger)(nil)

func NewRecordLogger() *RecordLogger {
	return &RecordLogger{}
}

func (l *RecordLogger) record(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordLogger) Entries(level ...string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if len(level) == 0 || e.Level == level[0] {
			out = append(out, e)
		}
	}
	return out
}

func (l *RecordLogger) Debug(msg string, args ...interface{}) { l.record("debug", msg, args) }
func (l *RecordLogger) Info(msg string, args ...interface{})  { l.record("info", msg, args) }
func (l *RecordLogger) Warn(msg string, args ...interface{})  { l.record("warn", msg, args) }
func (l *RecordLogger) Error(msg string, args ...interface{}) { l.record("error", msg, args) }

func (l *RecordLogger) Fatal(msg string, args ...interface{}) {
	l.record("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}
