package cmd

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/modelnet-sim/modelnet/config"
	"github.com/modelnet-sim/modelnet/kernel"
	"github.com/modelnet-sim/modelnet/mapping"
	"github.com/modelnet-sim/modelnet/netsim"
	"github.com/modelnet-sim/modelnet/stats"
	"github.com/modelnet-sim/modelnet/torus"
)

// localLatencyMean is the reference engine's GVT-safe scheduling-overhead
// draw, kept small the way CODES torus models use constants like 0.01.
const localLatencyMean = 0.01

var (
	flagNDims       int
	flagDimLength   []int
	flagBandwidth   float64
	flagBufferSize  int
	flagNumVC       int
	flagChunkSize   int
	flagTraceID     uint64
	flagScheduler   string
	flagPacketSize  uint64
	flagMsgSize     uint64
	flagRequests    int
	flagRate        float64
	flagHorizon     float64
	flagSeed        int64
	flagLogLevel    string
	flagMaxRate     float64
	flagMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a torus scenario and drive it to completion",
	RunE:  runTorusScenario,
}

func init() {
	runCmd.Flags().IntVar(&flagNDims, "n-dims", 2, "Number of torus dimensions")
	runCmd.Flags().IntSliceVar(&flagDimLength, "dim-length", []int{4, 4}, "Per-dimension ring length (0 defaults to 8)")
	runCmd.Flags().Float64Var(&flagBandwidth, "bandwidth", 1.0, "Link bandwidth in bytes/ns")
	runCmd.Flags().IntVar(&flagBufferSize, "buffer-size", 8, "Per-direction virtual channel buffer depth, in chunks")
	runCmd.Flags().IntVar(&flagNumVC, "num-vc", 1, "Virtual channels per direction")
	runCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 32, "Chunk size in bytes")
	runCmd.Flags().Uint64Var(&flagTraceID, "trace-id", 0, "Packet id to trace at debug level (0 disables)")
	runCmd.Flags().StringVar(&flagScheduler, "scheduler", "fcfs", "Scheduler kind: fcfs or fcfs-full")
	runCmd.Flags().Uint64Var(&flagPacketSize, "packet-size", 512, "Packet size in bytes (ignored for fcfs-full)")
	runCmd.Flags().Uint64Var(&flagMsgSize, "msg-size", 1024, "Message size in bytes for generated traffic")
	runCmd.Flags().IntVar(&flagRequests, "requests", 4, "Number of requests generated per node")
	runCmd.Flags().Float64Var(&flagRate, "rate", 0.01, "Poisson arrival rate per node (requests per ns)")
	runCmd.Flags().Float64Var(&flagHorizon, "horizon", 1e7, "Simulation horizon")
	runCmd.Flags().Int64Var(&flagSeed, "seed", 1, "Workload RNG seed")
	runCmd.Flags().StringVar(&flagLogLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().Float64Var(&flagMaxRate, "max-rate", 0, "Wall-clock cap on events/sec for an interactive demo run (0 disables)")
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address after the run completes")

	rootCmd.AddCommand(runCmd)
}

func runTorusScenario(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}
	logrus.SetLevel(level)

	// runID tags this run's log lines so multiple concurrent invocations
	// (e.g. a sweep over --seed) can be told apart in aggregated logs.
	runID := uuid.New().String()

	raw := torus.RawParams{
		NDims:         flagNDims,
		DimLength:     flagDimLength,
		LinkBandwidth: flagBandwidth,
		BufferSize:    flagBufferSize,
		NumVC:         flagNumVC,
		ChunkSize:     flagChunkSize,
		TraceID:       flagTraceID,
	}
	// Setup is called once here purely to learn NLP/DimLength for sizing the
	// mapping grid; the registry's own Setup call below recomputes the same
	// derived Params from the same raw block and actually wires them into
	// the fabric singleton.
	derived, err := torus.Setup(raw)
	if err != nil {
		return err
	}

	grid := mapping.NewGrid()
	grid.AddGroup("torus_net", []struct {
		TypeName string
		Count    int
		Reps     int
	}{{TypeName: "modelnet_torus", Count: 1, Reps: int(derived.NLP)}})

	fabric, ok := netsim.Registry["torus"]
	if !ok {
		return fmt.Errorf("torus fabric not registered")
	}
	if err := fabric.Setup(torus.SetupArgs{Params: raw, Mapper: grid}); err != nil {
		return err
	}

	loader, err := buildLoader()
	if err != nil {
		return err
	}

	engine := kernel.NewEngine(localLatencyMean)
	bases := make([]*netsim.BaseState, derived.NLP)
	for gid := uint64(0); gid < derived.NLP; gid++ {
		bs, err := netsim.NewBaseLP(gid, flagSeed+int64(gid)+1, "torus", "", loader)
		if err != nil {
			return fmt.Errorf("initializing lp %d: %w", gid, err)
		}
		bases[gid] = bs
		engine.Register(bs)
	}

	logrus.Infof("run %s: modelnet-sim: %d-dim torus, %d nodes, bandwidth=%.3f, buffer=%d, scheduler=%s",
		runID, derived.NDims, derived.NLP, derived.LinkBandwidth, derived.BufferSize, flagScheduler)

	injectWorkload(engine, bases, derived.NLP)

	runEngine(engine)

	report := collectReport(fabric, bases)
	logrus.Infof("run %s: finished=%d avg_hops=%.3f avg_latency=%.3f max_latency=%.3f gvt=%.3f",
		runID, report.FinishedPackets, report.AverageHops(), report.AverageLatency(), report.MaxLatency, engine.GVT())

	if flagMetricsAddr != "" {
		logrus.Infof("serving metrics on %s", flagMetricsAddr)
		return serveMetrics(flagMetricsAddr, report)
	}
	return nil
}

// buildLoader renders the CLI's scheduler/packet-size flags into the same
// yaml-encoded PARAMS document the config package expects from a real
// configuration file, so cmd and a hand-written yaml config exercise the
// identical parsing path.
func buildLoader() (*config.Loader, error) {
	type entry struct {
		Scheduler  string `yaml:"modelnet_scheduler"`
		PacketSize uint64 `yaml:"packet_size"`
	}
	doc := struct {
		Params map[string]entry `yaml:"params"`
	}{
		Params: map[string]entry{
			"": {Scheduler: flagScheduler, PacketSize: flagPacketSize},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering PARAMS document: %w", err)
	}
	return config.Load(data)
}

// injectWorkload generates, per node, flagRequests Poisson-spaced requests
// to a uniformly random other node. Arrival timing and destination choice
// are drawn from a CLI-local math/rand source, deliberately independent of
// every LP's own kernel.RandStream: workload injection is not a
// reverse-computed model event, so it carries no obligation to be undoable,
// and mixing it into a reversible stream would desynchronize the reverse
// handlers' draw accounting.
func injectWorkload(engine *kernel.Engine, bases []*netsim.BaseState, nlp uint64) {
	src := rand.New(rand.NewSource(flagSeed))
	for gid := uint64(0); gid < nlp; gid++ {
		t := 0.0
		for i := 0; i < flagRequests; i++ {
			t += src.ExpFloat64() / flagRate
			dest := gid
			for dest == gid && nlp > 1 {
				dest = uint64(src.Int63n(int64(nlp)))
			}
			req := &netsim.Request{
				Dest:      dest,
				FinalDest: dest,
				Sender:    gid,
				Category:  "default",
				MsgSize:   flagMsgSize,
			}
			engine.Send(nil, gid, t, netsim.NewRequestMessage("torus", req, nil, nil))
		}
	}
}

// runEngine drains the engine, optionally throttled to --max-rate
// events/sec so an interactive demo run doesn't peg a core. The limiter is
// a wall-clock convenience only; it is never read by any forward/reverse
// handler and has no effect on simulated time or RNG draws.
func runEngine(engine *kernel.Engine) {
	if flagMaxRate <= 0 {
		engine.RunUntil(flagHorizon)
		return
	}
	limiter := rate.NewLimiter(rate.Limit(flagMaxRate), 1)
	ctx := context.Background()
	for engine.GVT() <= flagHorizon {
		limiter.Wait(ctx)
		if !engine.Step() {
			break
		}
	}
}

func collectReport(fabric netsim.FabricMethods, bases []*netsim.BaseState) stats.Report {
	reports := make([]stats.Report, len(bases))
	for i, bs := range bases {
		reports[i] = fabric.ReportStats(bs.SubState)
	}
	return stats.GlobalReduce(reports)
}
