package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/config"
	"github.com/subaru9/riot-ratelimit/pkg/logger"
	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

// RateLimit is the façade callers use around an outbound API call: Hit
// before issuing the request, Refresh after the response comes back.
type RateLimit struct {
	policy    PolicyStore
	cooldown  CooldownStore
	admission Admission
	parser    *HeaderParser
	events    EventPublisher
	metrics   *Metrics
	log       *logger.Logger
	maxTTL    int
}

// New builds a RateLimit façade wired to a real Redis client.
func New(client storeredis.Client, cfg config.RateLimitConfig, log *logger.Logger, events EventPublisher, metrics *Metrics) *RateLimit {
	codec := NewKeyCodec(cfg.KeyPrefixPolicy, cfg.KeyPrefixLive, cfg.KeyPrefixCooldown)
	parser := NewHeaderParser(log)
	maxTTL := cfg.MaxCooldownTTLSeconds
	if maxTTL <= 0 {
		maxTTL = 120
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &RateLimit{
		policy:    NewPolicyStore(client, codec, parser, log),
		cooldown:  NewCooldownStore(client, codec, parser, log),
		admission: NewAdmission(client, codec, log),
		parser:    parser,
		events:    events,
		metrics:   metrics,
		log:       log,
		maxTTL:    maxTTL,
	}
}

// newFromComponents builds a façade directly from its collaborators,
// bypassing Redis construction — used by tests with fake stores.
func newFromComponents(policy PolicyStore, cooldown CooldownStore, admission Admission, parser *HeaderParser, events EventPublisher, metrics *Metrics, log *logger.Logger, maxTTL int) *RateLimit {
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &RateLimit{policy: policy, cooldown: cooldown, admission: admission, parser: parser, events: events, metrics: metrics, log: log, maxTTL: maxTTL}
}

// Hit decides whether a call to (routing, endpoint) may proceed right now.
// Order: cooldown first (a unilateral back-off always wins), then policy
// bootstrap (while no policy is known, the call is admitted blind so its
// response can teach the policy), then the atomic counter check. Blind
// admissions are not deduplicated: every Hit made before Refresh installs
// the policy returns the blind Allow.
func (r *RateLimit) Hit(ctx context.Context, routing Routing, endpoint string) (Decision, error) {
	decision, err := r.cooldown.Status(ctx, routing, endpoint)
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allow {
		r.observe("throttle", "cooldown")
		return decision, nil
	}

	known, err := r.policy.Known(ctx, routing, endpoint)
	if err != nil {
		return Decision{}, err
	}
	if !known {
		// The blind request: no policy exists yet locally, so this call is
		// admitted unconditionally and its response headers will teach the
		// system the policy via Refresh.
		blind, err := NewLimitEntry(LimitEntry{
			Routing: routing, Endpoint: endpoint, Source: SourcePolicy,
			TTL: absentTTL, AdjustedTTL: absentTTL,
		})
		if err != nil {
			return Decision{}, err
		}
		r.observe("allow", "blind")
		return Decision{Allow: true, Entries: []LimitEntry{blind}}, nil
	}

	entries, err := r.policy.Fetch(ctx, routing, endpoint)
	if err != nil {
		return Decision{}, err
	}

	start := time.Now()
	decision, err = r.admission.EnforceAndMaybeIncrement(ctx, entries)
	if r.metrics != nil {
		r.metrics.ObserveAdmissionDuration(time.Since(start).Seconds())
	}
	if err != nil {
		return Decision{}, err
	}
	if decision.Allow {
		r.observe("allow", "live")
	} else {
		r.observe("throttle", "live")
	}
	return decision, nil
}

// Refresh records the outcome of a completed upstream call: installs a
// cooldown if the headers direct one (before anything else, so a 429 always
// lands even with an incomplete policy), bootstraps policy on first
// observation, and emits a best-effort analytics event.
func (r *RateLimit) Refresh(ctx context.Context, headers http.Header, routing Routing, endpoint string, now time.Time) (Decision, error) {
	installed, err := r.cooldown.MaybeSet(ctx, headers, routing, endpoint, now, r.maxTTL)
	if err != nil && !errors.Is(err, ErrTTLInvalid) {
		return Decision{}, err
	}
	if installed {
		if r.metrics != nil {
			r.metrics.ObserveCooldownInstalled()
		}
		r.publishEvent(ctx, "cooldown_installed", routing, endpoint)
	}

	// A pure back-off response (429 with no X-*-Rate-Limit headers) carries
	// no policy to learn; the cooldown above was its whole message.
	var entries []LimitEntry
	if hasLimitDeclarations(headers) {
		entries, err = r.parser.Parse(headers, routing, endpoint)
		if err != nil {
			return Decision{}, err
		}

		known, err := r.policy.Known(ctx, routing, endpoint)
		if err != nil {
			return Decision{}, err
		}
		if !known {
			if err := r.policy.Set(ctx, headers, routing, endpoint); err != nil {
				return Decision{}, err
			}
			r.publishEvent(ctx, "policy_observed", routing, endpoint)
		}
	}

	r.metricsRefresh()
	return Decision{Allow: true, Entries: entries}, nil
}

// FetchPolicy exposes PolicyStore.Fetch for the admin server's devops
// dashboard endpoint; it is not part of the Hit/Refresh decision path.
func (r *RateLimit) FetchPolicy(ctx context.Context, routing Routing, endpoint string) ([]LimitEntry, error) {
	return r.policy.Fetch(ctx, routing, endpoint)
}

// CooldownStatus exposes CooldownStore.Status for the admin server.
func (r *RateLimit) CooldownStatus(ctx context.Context, routing Routing, endpoint string) (Decision, error) {
	return r.cooldown.Status(ctx, routing, endpoint)
}

func (r *RateLimit) publishEvent(ctx context.Context, kind string, routing Routing, endpoint string) {
	if err := r.events.Publish(ctx, kind, routing, endpoint); err != nil && r.log != nil {
		r.log.Warn("failed to publish rate-limit event", zap.String("kind", kind), zap.Error(err))
	}
}

func (r *RateLimit) observe(decision, source string) {
	if r.metrics != nil {
		r.metrics.ObserveHit(decision, source)
	}
}

func (r *RateLimit) metricsRefresh() {
	if r.metrics != nil {
		r.metrics.ObserveRefresh()
	}
}
