package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/rand"

	"github.com/sandfs/mdlog/internal/mdcache"
	"github.com/sandfs/mdlog/internal/mdlog"
	"github.com/sandfs/mdlog/internal/mdlogconfig"
	logservice "github.com/sandfs/mdlog/internal/log_service"
	locallog "github.com/sandfs/mdlog/internal/log_service/localdisc"
	"github.com/sandfs/mdlog/internal/streamer/filestreamer"
)

// Options is filled in by flag parsing and consumed by Build.
type Options struct {
	NodeID     string
	DataDir    string
	ConfigPath string
	Fresh      bool
}

type runnable interface {
	Run() error
}

type journalDaemon struct {
	log     *mdlog.Log
	cfg     *mdlogconfig.Config
	trimmer *time.Timer
	stopCh  chan struct{}
}

func (d *journalDaemon) Run() error {
	d.scheduleTrim()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	close(d.stopCh)
	d.trimmer.Stop()
	return nil
}

// scheduleTrim jitters its interval the way raft_cluster_service.go
// jitters election timeouts, so concurrent ranks don't all call Flush
// (and therefore Trim) in lockstep.
func (d *journalDaemon) scheduleTrim() {
	base := d.cfg.TrimInterval()
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	d.trimmer = time.AfterFunc(base+jitter, func() {
		select {
		case <-d.stopCh:
			return
		default:
		}
		d.log.Lock()
		d.log.Flush()
		d.log.Unlock()
		d.scheduleTrim()
	})
}

// Build wires a standalone journal daemon: a disk-backed LogService, a
// file-backed streamer, and a fake cache standing in for the real
// metadata server authority state this module never implements (that
// collaborator is external per the journal's own Cache interface).
func Build(opts Options) runnable {
	ls := locallog.NewLocalDiscLogService(opts.DataDir+"/logs", opts.NodeID, logservice.InfoLevel)

	cfg, err := mdlogconfig.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	streamer, err := filestreamer.New(opts.DataDir+"/journal", cfg.StripePeriod, cfg.PreferredPlacement, ls)
	if err != nil {
		log.Fatalf("create streamer: %v", err)
	}

	cache := mdcache.New()

	lg := mdlog.New(streamer, cache,
		mdlog.WithConfig(cfg.ToMDLogConfig()),
		mdlog.WithLogService(ls),
	)

	lg.Lock()
	done := make(chan error, 1)
	if opts.Fresh {
		lg.Create(func(err error) { done <- err })
	} else {
		lg.Open(func(err error) {
			if err != nil {
				done <- err
				return
			}
			lg.Replay(func(err error) { done <- err })
		})
	}
	lg.Unlock()

	if err := <-done; err != nil {
		log.Fatalf("journal init: %v", err)
	}

	lg.Lock()
	if !opts.Fresh {
		lg.Append()
	}
	lg.StartNewSegment(nil)
	lg.Unlock()

	return &journalDaemon{log: lg, cfg: cfg, stopCh: make(chan struct{})}
}

func main() {
	var (
		nodeID     = flag.String("node-id", "", "Node ID")
		dataDir    = flag.String("data-dir", "./data", "Data directory")
		configPath = flag.String("config", "./data/mdlog.yaml", "Config file path")
		fresh      = flag.Bool("fresh", false, "Create a new empty journal instead of opening an existing one")
	)
	flag.Parse()

	if *nodeID == "" {
		log.Fatal("--node-id is required")
	}

	opts := Options{
		NodeID:     *nodeID,
		DataDir:    *dataDir,
		ConfigPath: *configPath,
		Fresh:      *fresh,
	}

	daemon := Build(opts)
	if err := daemon.Run(); err != nil {
		log.Fatalf("daemon failed: %v", err)
	}
}
