package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/realtime"
	"github.com/trezcool/masomo/core/user"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// ParseLevel falls back to LevelInfo on unknown names.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal", "critical":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// RollbarLogger prints entries at or above its level and reports those at or above
// its report level to rollbar.
type RollbarLogger struct {
	std         *log.Logger
	level       Level
	reportLevel Level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	l := &RollbarLogger{std: std, level: LevelInfo, reportLevel: LevelWarn}
	if conf.Debug {
		l.level = LevelDebug
	}
	return l
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l *RollbarLogger) SetLevel(level Level) {
	l.level = level
}

func (l *RollbarLogger) SetReportLevel(level Level) {
	l.reportLevel = level
}

// expected fmt: msg | error, map[string]interface{}, user.User, realtime.Session
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	setPerson := func(id, uname, email string) {
		if !personSet { // only set one person
			rollbar.SetPerson(id, uname, email)
			personSet = true
		}
	}

	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			setPerson(a.ID, a.Username, a.Email)
		case realtime.Session:
			setPerson(a.UserID, a.Username, "")
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l *RollbarLogger) log(level Level, msg string, args []interface{}) {
	if level >= l.reportLevel {
		report := l.prepare(msg, args)
		switch level {
		case LevelDebug:
			rollbar.Debug(report...)
		case LevelInfo:
			rollbar.Info(report...)
		case LevelWarn:
			rollbar.Warning(report...)
		case LevelError:
			rollbar.Error(report...)
		default:
			rollbar.Critical(report...)
		}
	}

	if level < l.level {
		return
	}
	l.std.Printf("[%s] %s\n", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(LevelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
