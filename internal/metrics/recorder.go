package metrics

import "time"

// Recorder abstracts metric recording so services stay decoupled from
// Prometheus. Use Init to obtain a Prometheus-backed or no-op recorder.
type Recorder interface {
	// Authorization code lifecycle
	RecordAuthorizationCodeIssued(success bool)
	RecordAuthorizationCodeConsumed(result string) // success, expired, consumed, pkce_failed, invalid

	// Token lifecycle
	RecordTokenIssued(grantType string, generationTime time.Duration)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string, duration time.Duration)
	RecordTokenRevoked(reason string)

	// Consent lifecycle
	RecordConsentGranted()
	RecordConsentRevoked()
}
