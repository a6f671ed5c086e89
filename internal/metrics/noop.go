package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder.
// All methods are empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthorizationCodeIssued(success bool)                      {}
func (n *NoopMetrics) RecordAuthorizationCodeConsumed(result string)                   {}
func (n *NoopMetrics) RecordTokenIssued(grantType string, d time.Duration)             {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                                 {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration)     {}
func (n *NoopMetrics) RecordTokenRevoked(reason string)                                {}
func (n *NoopMetrics) RecordConsentGranted()                                           {}
func (n *NoopMetrics) RecordConsentRevoked()                                           {}
