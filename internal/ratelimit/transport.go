package ratelimit

import (
	"fmt"
	"net/http"
	"time"
)

// Transport decorates an http.RoundTripper with Hit/Refresh calls, so any
// existing http.Client can be made rate-limit-aware by swapping its
// Transport. RoutingFunc and EndpointFunc extract the routing value and
// normalised endpoint from the outbound request, since both are specific to
// how the caller builds Riot API URLs.
type Transport struct {
	Base         http.RoundTripper
	RateLimit    *RateLimit
	RoutingFunc  func(*http.Request) Routing
	EndpointFunc func(*http.Request) string
}

// RoundTrip blocks the outbound request when Hit throttles it, otherwise
// issues it through Base and feeds the response headers back through
// Refresh before returning.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	routing := t.RoutingFunc(req)
	endpoint := t.EndpointFunc(req)

	decision, err := t.RateLimit.Hit(req.Context(), routing, endpoint)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: hit failed: %w", err)
	}
	if !decision.Allow {
		return nil, fmt.Errorf("ratelimit: throttled for routing=%s endpoint=%s", routing, endpoint)
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if _, refreshErr := t.RateLimit.Refresh(req.Context(), resp.Header, routing, endpoint, time.Now()); refreshErr != nil {
		// A refresh failure never invalidates an otherwise-successful
		// upstream response; it only means the next call may be less
		// well-informed about policy or cooldown state.
		return resp, nil
	}
	return resp, nil
}
