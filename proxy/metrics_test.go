package proxy_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ArcaneChat/chatmail/proxy"
	"github.com/ArcaneChat/chatmail/utils"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/stretchr/testify/assert"
)

// Structs

// labelCounter sums observations per joined label set.
type labelCounter struct {
	mu     *sync.Mutex
	labels []string
	values map[string]float64
}

// Functions

func newLabelCounter() *labelCounter {
	return &labelCounter{mu: &sync.Mutex{}, values: map[string]float64{}}
}

func (c *labelCounter) With(labelValues ...string) metrics.Counter {
	return &labelCounter{
		mu:     c.mu,
		labels: append(append([]string{}, c.labels...), labelValues...),
		values: c.values,
	}
}

func (c *labelCounter) Add(delta float64) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[strings.Join(c.labels, ",")] += delta
}

// TestMetricsService counts lookups by kind and status
// and served iterations.
func TestMetricsService(t *testing.T) {

	env := utils.CreateTestEnv(t.TempDir())
	lookups := newLabelCounter()
	iterations := newLabelCounter()

	service := proxy.NewMetricsService(proxy.NewService(env.Config, newTestAuthenticator(env)), lookups, iterations)
	session := proxy.NewSession(log.NewNopLogger(), service)
	ctx := context.Background()

	session.Handle(ctx, "Lshared/userdb/asdf44444@chat.example.org")
	session.Handle(ctx, `Lshared/passdb/q9mr3faue1"asdf44444@chat.example.org`)
	session.Handle(ctx, "Lshared/userdb/asdf44444@chat.example.org")
	session.Handle(ctx, "Lshared/passdb/lonely")
	session.Handle(ctx, "I0\t0\tshared/userdb/")
	session.Handle(ctx, "I0\t0\tshared/passdb/")

	assert.Equal(t, map[string]float64{
		"kind,userdb,status,N": 1,
		"kind,userdb,status,O": 1,
		"kind,passdb,status,O": 1,
		"kind,passdb,status,F": 1,
	}, lookups.values)
	assert.Equal(t, map[string]float64{"": 1}, iterations.values)
}
