package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pscpu "github.com/shirou/gopsutil/v3/cpu"
	"github.com/sugawarayuuta/sonnet"

	fiberatomic "github.com/carterww/fiber-atomic"
	"github.com/carterww/fiber-atomic/internal/constants"
	"github.com/carterww/fiber-atomic/internal/logging"
	"github.com/carterww/fiber-atomic/internal/stress"
)

func main() {
	var (
		scenarioName = flag.String("scenario", "all", "Scenario to run, or \"all\"")
		workers      = flag.Int("workers", 0, "Worker goroutines (default: logical CPUs)")
		iterations   = flag.Int("iterations", constants.DefaultIterations, "Operations per worker")
		widthBits    = flag.Int("width", 32, "Operand width in bits (8, 16, 32, 64)")
		orderName    = flag.String("order", "seq_cst", "Memory order of the operation under test")
		weak         = flag.Bool("weak", false, "Use weak compare-exchange in cas-increment")
		pin          = flag.Bool("pin", false, "Pin each worker to its own CPU")
		sampleEvery  = flag.Int("sample", constants.DefaultSampleEvery, "Time one operation in every N (0 disables)")
		timeout      = flag.Duration("timeout", constants.DefaultRunTimeout, "Timeout for a single scenario run")
		verbose      = flag.Bool("v", false, "Verbose output")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
		report       = flag.String("report", "text", "Result report format: text or json")
		metricsAddr  = flag.String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	)
	flag.Parse()

	order, err := fiberatomic.ParseMemoryOrder(*orderName)
	if err != nil {
		log.Fatalf("Invalid order '%s': %v", *orderName, err)
	}
	if *widthBits%8 != 0 {
		log.Fatalf("Invalid width %d: must be a multiple of 8", *widthBits)
	}
	width := uintptr(*widthBits / 8)
	if err := fiberatomic.ValidateWidth(width); err != nil {
		log.Fatalf("Invalid width %d: %v", *widthBits, err)
	}
	if *report != "text" && *report != "json" {
		log.Fatalf("Invalid report format '%s'", *report)
	}

	scenarios := stress.Scenarios()
	explicit := *scenarioName != "all"
	if explicit {
		s, err := stress.ParseScenario(*scenarioName)
		if err != nil {
			log.Fatalf("Invalid scenario: %v", err)
		}
		scenarios = []stress.Scenario{s}
	}

	// Set up logging
	logConfig := logging.DefaultConfig()
	logConfig.Format = *logFormat
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *workers == 0 {
		*workers = cpuCount(logger)
	}

	describeHost(logger)

	metrics := stress.NewMetrics()
	if *metricsAddr != "" {
		serveMetrics(logger, *metricsAddr, metrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up SIGUSR1 handler for stack trace dumps
	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			dumpStacks(logger)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	base := stress.Config{
		Workers:     *workers,
		Iterations:  *iterations,
		Width:       width,
		Order:       order,
		Weak:        *weak,
		Pin:         *pin,
		SampleEvery: *sampleEvery,
		Timeout:     *timeout,
		Logger:      logger,
		Observer:    stress.NewMetricsObserver(metrics),
	}

	var results []*stress.Result
	failed := false
	for _, s := range scenarios {
		cfg := base
		cfg.Scenario = s
		if err := cfg.Validate(); err != nil {
			if explicit {
				logger.WithError(err).Error("invalid configuration", "scenario", string(s))
				failed = true
				break
			}
			logger.WithError(err).Warn("skipping scenario", "scenario", string(s))
			continue
		}

		res, err := stress.Run(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("scenario did not complete", "scenario", string(s))
			failed = true
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}
		results = append(results, res)
		if !res.OK() {
			failed = true
		}
	}

	if err := writeReport(os.Stdout, *report, results, metrics.Snapshot()); err != nil {
		logger.WithError(err).Error("failed to write report")
		failed = true
	}

	logger.Close()
	if failed {
		os.Exit(1)
	}
}

// cpuCount returns the number of logical CPUs, falling back to the runtime's
// view when gopsutil cannot read it.
func cpuCount(logger *logging.Logger) int {
	n, err := pscpu.Counts(true)
	if err != nil || n < 1 {
		logger.Debug("cpu count unavailable, using runtime.NumCPU", "error", err)
		n = runtime.NumCPU()
	}
	if n < 2 {
		n = constants.DefaultWorkers
	}
	return n
}

// describeHost logs the CPU model and how each operand width is implemented
func describeHost(logger *logging.Logger) {
	caps := fiberatomic.Detect()
	model := "unknown"
	if infos, err := pscpu.Info(); err == nil && len(infos) > 0 {
		model = infos[0].ModelName
	}
	logger.Info("host",
		"cpu", model,
		"arch", caps.GOARCH,
		"big_endian", caps.BigEndian,
		"cache_line", caps.CacheLineSize,
		"native_widths", caps.NativeWidths,
		"emulated_widths", caps.EmulatedWidths,
		"cx16", caps.HasCX16,
		"lse", caps.HasLSE)
}

func serveMetrics(logger *logging.Logger, addr string, metrics *stress.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(stress.NewCollector(metrics))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	logger.Info("serving metrics", "addr", addr)
}

func dumpStacks(logger *logging.Logger) {
	logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
	buf := make([]byte, 1024*1024) // 1MB buffer
	n := runtime.Stack(buf, true)
	fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n")
	fmt.Fprintf(os.Stderr, "%s\n", buf[:n])
	fmt.Fprintf(os.Stderr, "=== END STACK DUMP ===\n\n")

	filename := fmt.Sprintf("fiber-atomic-stacks-%d.txt", time.Now().Unix())
	f, err := os.Create(filename)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "Goroutine stack dump at %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(f, "Process ID: %d\n\n", os.Getpid())
	f.Write(buf[:n])
	fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
	pprof.Lookup("goroutine").WriteTo(f, 2)
	logger.Info("stack trace written to file", "file", filename)
}

type jsonReport struct {
	Results []*stress.Result       `json:"results"`
	Metrics stress.MetricsSnapshot `json:"metrics"`
}

func writeReport(w io.Writer, format string, results []*stress.Result, snap stress.MetricsSnapshot) error {
	if format == "json" {
		data, err := sonnet.Marshal(jsonReport{Results: results, Metrics: snap})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tWIDTH\tORDER\tWORKERS\tOPS\tRETRIES\tVIOLATIONS\tOPS/S\tRESULT")
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "FAIL"
		}
		order := r.OrderName
		if r.Weak {
			order += " (weak)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%.0f\t%s\n",
			r.Scenario, r.Width*8, order, r.Workers, r.Ops, r.Retries, r.Violations, r.OpsPerSecond(), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range results {
		if len(r.Samples) > 0 {
			fmt.Fprintf(w, "\n%s violations:\n  %s\n", r.Scenario, strings.Join(r.Samples, "\n  "))
		}
	}
	if snap.LatencySamples > 0 {
		fmt.Fprintf(w, "\nlatency: p50 %dns  p99 %dns  p99.9 %dns  max %dns  (%d samples)\n",
			snap.LatencyP50Ns, snap.LatencyP99Ns, snap.LatencyP999Ns, snap.MaxLatencyNs, snap.LatencySamples)
	}
	return nil
}
