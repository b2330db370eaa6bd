package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ArcaneChat/chatmail/auth"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type DoveauthMetrics struct {
	Proxy *ProxyMetrics
	Auth  *auth.Metrics
}

type ProxyMetrics struct {
	Lookups    metrics.Counter
	Iterations metrics.Counter
}

func NewDoveauthMetrics(addr string) *DoveauthMetrics {

	m := &DoveauthMetrics{}

	if addr == "" {
		m.Proxy = &ProxyMetrics{
			Lookups:    discard.NewCounter(),
			Iterations: discard.NewCounter(),
		}
		m.Auth = &auth.Metrics{
			Created:  discard.NewCounter(),
			Rejected: discard.NewCounter(),
		}
	} else {
		m.Proxy = &ProxyMetrics{
			Lookups: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "doveauth",
				Subsystem: "proxy",
				Name:      "lookups_total",
				Help:      "Number of answered lookups",
			}, []string{"kind", "status"}),
			Iterations: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "doveauth",
				Subsystem: "proxy",
				Name:      "iterations_total",
				Help:      "Number of served address iterations",
			}, nil),
		}
		m.Auth = &auth.Metrics{
			Created: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "doveauth",
				Subsystem: "auth",
				Name:      "accounts_created_total",
				Help:      "Number of provisioned accounts",
			}, nil),
			Rejected: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "doveauth",
				Subsystem: "auth",
				Name:      "creations_rejected_total",
				Help:      "Number of account creations refused by policy",
			}, nil),
		}
	}

	return m
}

// runPromHTTP exposes the default registry on addr
// until ctx is cancelled. Failing to serve metrics
// is logged but does not stop the daemon.
func runPromHTTP(ctx context.Context, logger log.Logger, addr string) error {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx)
	}()

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}

	return nil
}
