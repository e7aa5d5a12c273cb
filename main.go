package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const usage = `usage:
  wordfreq count [flags] file...
  wordfreq serve [flags]
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "count":
		err = runCount(args[1:], os.Stdout)
	case "serve":
		err = runServe(args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

type commandFlags struct {
	fs         *flag.FlagSet
	configPath string
	capacity   int
	threshold  int
	hasher     string
	logLevel   string
}

func newCommandFlags(name string) *commandFlags {
	cf := &commandFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	cf.fs.StringVar(&cf.configPath, "config", "", "YAML config file")
	cf.fs.IntVar(&cf.capacity, "capacity", 0, "number of hash table buckets")
	cf.fs.IntVar(&cf.threshold, "threshold", -1, "report words counted more than this many times")
	cf.fs.StringVar(&cf.hasher, "hasher", "", "hash function: java31 or xxhash")
	cf.fs.StringVar(&cf.logLevel, "log-level", "", "logrus level")
	return cf
}

// config loads the file, if any, and applies the flags that were set over it.
func (cf *commandFlags) config() (*Config, error) {
	cfg := DefaultConfig()
	if cf.configPath != "" {
		var err error
		if cfg, err = LoadConfig(cf.configPath); err != nil {
			return nil, err
		}
	}
	if cf.capacity != 0 {
		cfg.Capacity = cf.capacity
	}
	if cf.threshold >= 0 {
		cfg.Threshold = cf.threshold
	}
	if cf.hasher != "" {
		cfg.Hasher = cf.hasher
	}
	if cf.logLevel != "" {
		cfg.LogLevel = cf.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runCount counts the words of every file in one table and prints the words
// above the threshold.
func runCount(args []string, out io.Writer) error {
	cf := newCommandFlags("count")
	if err := cf.fs.Parse(args); err != nil {
		return err
	}
	cfg, err := cf.config()
	if err != nil {
		return err
	}
	if cf.fs.NArg() == 0 {
		return errors.New("count: no input files")
	}

	table, err := NewHashTable(cfg.Capacity, WithHashFunc(cfg.HashFunc()))
	if err != nil {
		return err
	}
	defer table.Teardown()

	for _, path := range cf.fs.Args() {
		if _, err := IngestFile(path, table); err != nil {
			return err
		}
	}
	log.Infof("Counted %d distinct words in %d buckets", table.Size(), table.Capacity())
	return WriteReport(out, table.ScanAboveThreshold(cfg.Threshold))
}

func runServe(args []string) error {
	cf := newCommandFlags("serve")
	name := cf.fs.String("name", "", "node name, at most 8 bytes")
	bindAddr := cf.fs.String("bind-addr", "", "gossip bind address")
	bindPort := cf.fs.Int("bind-port", 0, "gossip bind port")
	apiAddr := cf.fs.String("api-addr", "", "API listen address")
	apiPort := cf.fs.String("api-port", "", "API listen port")
	seeds := cf.fs.String("join", "", "comma separated gossip addresses to join")
	inherit := cf.fs.Bool("inherit", false, "take table settings from the cluster")
	if err := cf.fs.Parse(args); err != nil {
		return err
	}
	cfg, err := cf.config()
	if err != nil {
		return err
	}
	if *name != "" {
		cfg.Cluster.Name = *name
	}
	if *bindAddr != "" {
		cfg.Cluster.BindAddr = *bindAddr
	}
	if *bindPort != 0 {
		cfg.Cluster.BindPort = *bindPort
	}
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	if *apiPort != "" {
		cfg.APIPort = *apiPort
	}
	if *seeds != "" {
		cfg.Cluster.Seeds = strings.Split(*seeds, ",")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sink, err := SetupMetrics(cfg.Cluster.Name)
	if err != nil {
		return err
	}
	n, err := StartNode(cfg, *inherit && len(cfg.Cluster.Seeds) > 0, sink)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	n.Stop()
	return nil
}
