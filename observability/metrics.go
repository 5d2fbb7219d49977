package observability

// Namespace prefixes every metric exported by the vault services.
const Namespace = "lpvault"

const (
	MetricLedgerCommandsTotal   = "ledger_commands_total"
	MetricLedgerCommandDuration = "ledger_command_duration_seconds"
	MetricLedgerFeesTotal       = "ledger_fees_collected_total"
	MetricLedgerEventErrors     = "ledger_event_emit_errors_total"

	MetricPublisherNATSAcksTotal = "publisher_nats_acks_total"
	MetricPublisherNATSErrors    = "publisher_nats_errors_total"

	MetricAPIRequestsTotal = "api_requests_total"
	MetricAPICacheHits     = "api_cache_hits_total"
	MetricAPICacheMisses   = "api_cache_misses_total"

	MetricAuditMismatches = "audit_mismatches_total"
)
