package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// IP records the client address under the key "ip".
func IP(ip string) slog.Attr {
	if ip == "" {
		return slog.Attr{}
	}
	return slog.String("ip", ip)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Factor records the second factor kind, "totp" or "recovery_codes".
func Factor(name string) slog.Attr {
	return slog.String("factor", name)
}

func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
