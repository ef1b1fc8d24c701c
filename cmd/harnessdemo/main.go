// Command harnessdemo spins up a small demo actor on the RPC harness,
// drives it with a handful of calls, and (optionally) serves the inspector
// over HTTP so its activity can be watched live in a browser.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/rpcharness/codec/jsoncodec"
	"github.com/gosuda/rpcharness/harness"
	"github.com/gosuda/rpcharness/inspector"
	"github.com/gosuda/rpcharness/metrics"
	"github.com/gosuda/rpcharness/registry"
	"github.com/gosuda/rpcharness/service"
)

var (
	flagInspectAddr string
	flagPingCount   int
	flagTimeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "harnessdemo",
	Short: "Run a demo actor on the RPC harness and exercise it with a client stub",
	RunE:  run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	defaultAddr := os.Getenv("INSPECT_ADDR")
	if defaultAddr == "" {
		defaultAddr = ":4190"
	}
	flags.StringVar(&flagInspectAddr, "inspect-addr", defaultAddr, "address to serve the inspector UI on, empty to disable (env: INSPECT_ADDR)")
	flags.IntVar(&flagPingCount, "pings", 10, "number of ping() calls to issue against the demo actor")
	flags.DurationVar(&flagTimeout, "timeout", 2*time.Second, "per-call client timeout")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute harnessdemo")
	}
}

// counterService is the demo's user implementation: a handler that returns
// a fixed value and a handler that increments a counter, matching the seed
// scenarios a harness reviewer would try first.
type counterService struct {
	count int
}

func (c *counterService) getValue(context.Context, []byte) ([]byte, error) {
	return jsoncodec.Encode(uint64(42))
}

func (c *counterService) ping(context.Context, []byte) ([]byte, error) {
	c.count++
	return jsoncodec.Encode(c.count)
}

const (
	tagGetValue harness.MethodTag = "get_value"
	tagPing     harness.MethodTag = "ping"
)

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := service.NewRegistry()
	impl := &counterService{}
	reg.Register(tagGetValue, "get_value()", func(ctx context.Context, impl any, args []byte) ([]byte, error) {
		return impl.(*counterService).getValue(ctx, args)
	})
	reg.Register(tagPing, "ping()", func(ctx context.Context, impl any, args []byte) ([]byte, error) {
		return impl.(*counterService).ping(ctx, args)
	})

	actorRegistry := registry.New(5 * time.Second)
	actorRegistry.Start()
	defer actorRegistry.Stop()

	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)
	hub := inspector.NewHub(actorRegistry, 200)

	const actorName = "counter-demo"
	instrumented := inspector.Instrument(reg, hub, actorName)
	endpoint := harness.SpawnInstrumented(func() any { return impl }, instrumented, collector)
	actorRegistry.Register(actorName, endpoint)
	defer harness.Shutdown(endpoint)

	var httpSrv *http.Server
	if flagInspectAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		mux.Handle("/", inspector.NewRouter(hub))
		httpSrv = &http.Server{Addr: flagInspectAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", flagInspectAddr).Msg("[harnessdemo] inspector listening")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("[harnessdemo] inspector http error")
			}
		}()
		defer httpSrv.Close()
	}

	stub := harness.NewClientStub(endpoint, flagTimeout)
	defer stub.Close()

	data, err := stub.Call(tagGetValue, nil)
	if err != nil {
		return fmt.Errorf("get_value: %w", err)
	}
	var value uint64
	if err := jsoncodec.Decode(data, &value); err != nil {
		return fmt.Errorf("decode get_value: %w", err)
	}
	log.Info().Uint64("value", value).Msg("[harnessdemo] get_value() returned")

	for i := 0; i < flagPingCount; i++ {
		data, err := stub.Call(tagPing, nil)
		if err != nil {
			return fmt.Errorf("ping %d: %w", i, err)
		}
		var n int
		if err := jsoncodec.Decode(data, &n); err != nil {
			return fmt.Errorf("decode ping %d: %w", i, err)
		}
		log.Info().Int("ping_count", n).Msg("[harnessdemo] ping() returned")
	}

	if flagInspectAddr == "" {
		return nil
	}

	log.Info().Msg("[harnessdemo] demo calls complete, inspector still serving; press Ctrl-C to exit")
	<-ctx.Done()
	return nil
}
