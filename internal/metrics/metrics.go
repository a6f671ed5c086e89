package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the authorization server
type Metrics struct {
	// Authorization code metrics
	AuthorizationCodesIssuedTotal   *prometheus.CounterVec
	AuthorizationCodesConsumedTotal *prometheus.CounterVec

	// Token metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration *prometheus.HistogramVec
	TokenValidationDuration *prometheus.HistogramVec

	// Consent metrics
	ConsentsGrantedTotal prometheus.Counter
	ConsentsRevokedTotal prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=true, returns Prometheus-based Metrics; otherwise NoopMetrics.
// Uses sync.Once to ensure Prometheus metrics are only registered once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthorizationCodesIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_codes_issued_total",
				Help: "Total number of authorization codes issued",
			},
			[]string{"result"}, // success, error
		),
		AuthorizationCodesConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_codes_consumed_total",
				Help: "Total number of authorization code redemption attempts",
			},
			[]string{"result"}, // success, expired, consumed, pkce_failed, invalid
		),
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
			[]string{"grant_type"},
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of refresh token exchanges",
			},
			[]string{"result"}, // success, error
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"reason"}, // rotation, consent_revoked
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of bearer token validations",
			},
			[]string{"result"}, // success, expired, invalid, revoked
		),
		TokenGenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oauth_token_generation_duration_seconds",
				Help:    "Time taken to mint a token pair",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"grant_type"},
		),
		TokenValidationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oauth_token_validation_duration_seconds",
				Help:    "Time taken to validate a bearer token",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		ConsentsGrantedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_consents_granted_total",
				Help: "Total number of consent grants recorded",
			},
		),
		ConsentsRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_consents_revoked_total",
				Help: "Total number of consent revocations",
			},
		),
	}
}

func (m *Metrics) RecordAuthorizationCodeIssued(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.AuthorizationCodesIssuedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordAuthorizationCodeConsumed(result string) {
	m.AuthorizationCodesConsumedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokenIssued(grantType string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(grantType).Inc()
	m.TokenGenerationDuration.WithLabelValues(grantType).Observe(generationTime.Seconds())
}

func (m *Metrics) RecordTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenRevoked(reason string) {
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordConsentGranted() {
	m.ConsentsGrantedTotal.Inc()
}

func (m *Metrics) RecordConsentRevoked() {
	m.ConsentsRevokedTotal.Inc()
}
