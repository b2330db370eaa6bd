package proxy

import (
	"context"

	"github.com/ArcaneChat/chatmail/dict"
	"github.com/go-kit/kit/metrics"
)

type metricsService struct {
	service    Service
	lookups    metrics.Counter
	iterations metrics.Counter
}

// NewMetricsService counts answered lookups, labelled
// by kind and status, and served iterations.
func NewMetricsService(s Service, lookups metrics.Counter, iterations metrics.Counter) Service {
	return &metricsService{
		service:    s,
		lookups:    lookups,
		iterations: iterations,
	}
}

func (s *metricsService) Lookup(ctx context.Context, req *dict.Request) (dict.Reply, error) {

	reply, err := s.service.Lookup(ctx, req)

	s.lookups.With("kind", req.Kind, "status", string(reply.Status)).Add(1)

	return reply, err
}

func (s *metricsService) Iterate(ctx context.Context, req *dict.Request) (*dict.Iteration, error) {

	it, err := s.service.Iterate(ctx, req)

	if err == nil {
		s.iterations.Add(1)
	}

	return it, err
}
