package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ArcaneChat/chatmail/dict"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Structs

// result is the round trip of one passdb lookup.
type result struct {
	Index  int
	Addr   string
	Status dict.Status
	RTT    time.Duration
}

// summary condenses the round trips of one run.
type summary struct {
	Count  int
	Failed int
	Min    time.Duration
	Median time.Duration
	Max    time.Duration
}

// Functions

// genAddress returns a random address with a
// localpart of length characters.
func genAddress(domain string, length int) string {

	localpart := ""
	for len(localpart) < length {
		localpart += strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	return fmt.Sprintf("%s@%s", localpart[:length], domain)
}

// lookup sends one passdb request the way Dovecot
// does and awaits the reply line.
func lookup(conn net.Conn, r *bufio.Reader, addr string, password string) (dict.Status, error) {

	_, err := fmt.Fprintf(conn, "L%s%s\t%s\n", dict.NamespaceShared+"/"+dict.KindPassDB+"/", dict.Escape(password, addr), addr)
	if err != nil {
		return 0, err
	}

	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}

	return dict.Status(line[0]), nil
}

// runLookups provisions accounts fresh accounts over
// workers parallel connections to socketPath and
// measures the round trip of every lookup.
func runLookups(ctx context.Context, socketPath string, domain string, length int, accounts int, workers int) ([]result, error) {

	results := make([]result, accounts)
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {

		defer close(jobs)

		for i := 0; i < accounts; i++ {

			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return nil
	})

	for w := 0; w < workers; w++ {

		g.Go(func() error {

			var d net.Dialer

			conn, err := d.DialContext(ctx, "unix", socketPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			r := bufio.NewReader(conn)

			_, err = fmt.Fprint(conn, "H3\t2\t0\t\tauth\n")
			if err != nil {
				return err
			}

			for i := range jobs {

				addr := genAddress(domain, length)

				t1 := time.Now()
				status, err := lookup(conn, r, addr, uuid.NewString())
				if err != nil {
					return fmt.Errorf("lookup %d failed: %w", i, err)
				}

				results[i] = result{
					Index:  i,
					Addr:   addr,
					Status: status,
					RTT:    time.Since(t1),
				}
			}

			return nil
		})
	}

	return results, g.Wait()
}

// summarize computes round trip statistics. Lookups
// not answered with O count as failed.
func summarize(results []result) summary {

	s := summary{Count: len(results)}
	if len(results) == 0 {
		return s
	}

	rtts := make([]time.Duration, 0, len(results))
	for _, res := range results {

		if res.Status != dict.StatusOK {
			s.Failed++
		}
		rtts = append(rtts, res.RTT)
	}

	sort.Slice(rtts, func(i, j int) bool { return rtts[i] < rtts[j] })

	s.Min = rtts[0]
	s.Median = rtts[len(rtts)/2]
	s.Max = rtts[len(rtts)-1]

	return s
}

func main() {

	socketPath := flag.String("socket", "", "doveauth unix socket (required)")
	domain := flag.String("domain", "", "mail domain served by doveauth (required)")
	output := flag.String("output", "", "output file (required)")
	length := flag.Int("length", 9, "localpart length of generated addresses")
	accounts := flag.Int("accounts", 100, "number of accounts to create")
	workers := flag.Int("workers", 10, "number of parallel connections")

	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	if *socketPath == "" || *domain == "" || *output == "" {
		level.Error(logger).Log("msg", "not enough arguments, try -h")
		os.Exit(1)
	}

	f, err := os.OpenFile(*output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		level.Error(logger).Log("msg", "failed to open output file", "err", err)
		os.Exit(2)
	}
	defer f.Close()

	level.Info(logger).Log("msg", "creating accounts", "accounts", *accounts, "workers", *workers)

	results, err := runLookups(context.Background(), *socketPath, *domain, *length, *accounts, *workers)
	if err != nil && !errors.Is(err, context.Canceled) {
		level.Error(logger).Log("msg", "failed to run lookups", "err", err)
		os.Exit(3)
	}

	for _, res := range results {

		_, err := fmt.Fprintf(f, "%d, %s, %c, %s\r\n", res.Index, res.Addr, res.Status, res.RTT)
		if err != nil {
			level.Error(logger).Log("msg", "failed to write result", "err", err)
			os.Exit(4)
		}
	}

	s := summarize(results)
	level.Info(logger).Log(
		"msg", "done",
		"count", s.Count,
		"failed", s.Failed,
		"min", s.Min,
		"median", s.Median,
		"max", s.Max,
	)
}
