package internaldefs

import (
	"github.com/banjarlabs/iuran"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   iuran.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   iuran.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "iuran_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: iuran.MetricLoginSuccess, Name: "iuran_login_success_total", Help: "Successful logins."},
	{ID: iuran.MetricLoginFailure, Name: "iuran_login_failure_total", Help: "Failed logins."},
	{ID: iuran.MetricLogout, Name: "iuran_logout_total", Help: "Explicit logouts."},
	{ID: iuran.MetricRestoreSuccess, Name: "iuran_session_restore_success_total", Help: "Persisted sessions revalidated at start-up."},
	{ID: iuran.MetricRestoreFailure, Name: "iuran_session_restore_failure_total", Help: "Persisted sessions rejected at start-up."},
	{ID: iuran.MetricSessionExpired, Name: "iuran_session_expired_total", Help: "Sessions ended by a 401 from the API."},
	{ID: iuran.MetricEncryptionDowngrade, Name: "iuran_storage_encryption_downgrade_total", Help: "Values stored as plaintext because encryption failed."},
	{ID: iuran.MetricDecryptionFailure, Name: "iuran_storage_decryption_failure_total", Help: "Encrypted values that could not be opened."},
	{ID: iuran.MetricEmptyPlaintext, Name: "iuran_storage_empty_plaintext_total", Help: "Encrypted values that decrypted to an empty string."},
	{ID: iuran.MetricLegacyRead, Name: "iuran_storage_legacy_read_total", Help: "Unencrypted legacy values read from storage."},
	{ID: iuran.MetricStorageBackendFailure, Name: "iuran_storage_backend_failure_total", Help: "Storage backend read failures."},
	{ID: iuran.MetricAPIRequest, Name: "iuran_api_requests_total", Help: "Requests sent to the remote API."},
	{ID: iuran.MetricAPIRequestFailure, Name: "iuran_api_request_failures_total", Help: "API requests that returned an error."},
	{ID: iuran.MetricAPIUnauthorized, Name: "iuran_api_unauthorized_total", Help: "API responses with status 401."},
}

var HistogramDefs = []HistogramDef{
	{ID: iuran.MetricLoginLatency, Name: "iuran_login_latency_seconds", Help: "Login latency."},
	{ID: iuran.MetricAPILatency, Name: "iuran_api_latency_seconds", Help: "Remote API request latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
