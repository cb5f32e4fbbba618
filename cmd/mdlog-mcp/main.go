package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandfs/mdlog/internal/mdcache"
	"github.com/sandfs/mdlog/internal/mdlog"
	"github.com/sandfs/mdlog/internal/mdlogconfig"
	"github.com/sandfs/mdlog/internal/mdlogmetrics"
	logservice "github.com/sandfs/mdlog/internal/log_service"
	locallog "github.com/sandfs/mdlog/internal/log_service/localdisc"
	"github.com/sandfs/mdlog/internal/streamer/filestreamer"
)

// registry bundles the opened journal this tool introspects, mirroring
// cmd/mcp's ServerRegistry: a small struct the tool handlers close over.
type registry struct {
	log      *mdlog.Log
	metrics  *mdlogmetrics.Metrics
	streamer *filestreamer.Streamer
}

func addTools(s *server.MCPServer, reg *registry) {
	statusTool := mcp.NewTool("journal_status",
		mcp.WithDescription("Report the journal's current offsets, segment count, and trimming state"),
	)
	s.AddTool(statusTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reg.log.Lock()
		defer reg.log.Unlock()

		result := fmt.Sprintf(
			"expire_pos=%d read_pos=%d write_pos=%d segments=%d trimming=%d events=%d capped=%t preferred_placement=%q",
			reg.log.ExpirePos(), reg.log.ReadPos(), reg.log.WritePos(),
			reg.log.SegmentCount(), reg.log.TrimmingCount(), reg.log.NumEvents(), reg.log.Capped(),
			reg.streamer.PreferredPlacement(),
		)
		return mcp.NewToolResultText(result), nil
	})

	metricsTool := mcp.NewTool("journal_metrics",
		mcp.WithDescription("Dump the journal's counters and gauges"),
	)
	s.AddTool(metricsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := reg.metrics.Snapshot()
		result := fmt.Sprintf(
			"evadd=%d evtrm=%d ev=%d segadd=%d segtrm=%d segtrmg=%d seg=%d expos=%d wrpos=%d rdpos=%d avg_jlat=%s",
			snap.EvAdd, snap.EvTrim, snap.Ev, snap.SegAdd, snap.SegTrim, snap.SegTrimming, snap.Seg,
			snap.ExpirePos, snap.WritePos, snap.ReadPos, snap.AvgAppendLatency,
		)
		return mcp.NewToolResultText(result), nil
	})
}

func main() {
	var (
		nodeID     = flag.String("node-id", "mdlog-mcp", "Node ID")
		dataDir    = flag.String("data-dir", "./data", "Data directory of the journal to introspect")
		configPath = flag.String("config", "./data/mdlog.yaml", "Config file path")
	)
	flag.Parse()

	ls := locallog.NewLocalDiscLogService(*dataDir+"/logs", *nodeID, logservice.InfoLevel)

	cfg, err := mdlogconfig.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	streamer, err := filestreamer.New(*dataDir+"/journal", cfg.StripePeriod, cfg.PreferredPlacement, ls)
	if err != nil {
		panic(err)
	}

	metrics := mdlogmetrics.New(ls)
	lg := mdlog.New(streamer, mdcache.New(),
		mdlog.WithConfig(cfg.ToMDLogConfig()),
		mdlog.WithMetrics(metrics),
		mdlog.WithLogService(ls),
	)

	lg.Lock()
	done := make(chan error, 1)
	lg.Open(func(err error) { done <- err })
	lg.Unlock()
	if err := <-done; err != nil {
		panic(err)
	}

	reg := &registry{log: lg, metrics: metrics, streamer: streamer}

	s := server.NewMCPServer(
		"mdlog introspection",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, reg)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("server error: %v\n", err)
	}
}
