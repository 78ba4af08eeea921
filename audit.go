package iuran

import (
	"io"

	"github.com/banjarlabs/iuran/internal/audit"
	"github.com/rs/zerolog"
)

// Diagnostic event types.
const (
	AuditLoginSuccess          = "login_success"
	AuditLoginFailure          = "login_failure"
	AuditLogout                = "logout"
	AuditRestoreSuccess        = "session_restore_success"
	AuditRestoreFailure        = "session_restore_failure"
	AuditSessionExpired        = "session_expired"
	AuditEncryptionDowngrade   = "storage_encryption_downgrade"
	AuditDecryptionFailure     = "storage_decryption_failure"
	AuditEmptyPlaintext        = "storage_empty_plaintext"
	AuditLegacyRead            = "storage_legacy_read"
	AuditStorageBackendFailure = "storage_backend_failure"
)

// AuditEvent is one structured diagnostic record.
type AuditEvent = audit.Event

// AuditSink receives events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events to a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// LogSink writes events through zerolog.
type LogSink = audit.LogSink

// NewChannelSink returns a sink with a buffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one event per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink writes diagnostic events through l.
func NewLogSink(l zerolog.Logger) *LogSink {
	return audit.NewLogSink(l)
}
