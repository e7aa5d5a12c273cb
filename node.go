package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrClusterTimeout = errors.New("timed out waiting for cluster members")

// ClusterNode is one word counting member of a cluster. It counts the text
// posted to its own API and answers count requests from peers so any member
// can build a cluster wide report.
type ClusterNode struct {
	MList  *MemberList
	Config *Config
	Engine *Engine
	Server *APIServer

	name     string
	pending  map[uint64]chan []Entry
	nextID   uint64
	configCh chan *Config
	mu       sync.Mutex
	stopOnce sync.Once
}

// StartNode joins the cluster, creates the engine and starts the API server in
// the background. With inherit set the table settings are taken from the first
// peer reached instead of from config.
func StartNode(config *Config, inherit bool, sink *metrics.InmemSink) (*ClusterNode, error) {
	if config.Cluster.Name == "" {
		config.Cluster.Name = fmt.Sprintf("n%d", config.Cluster.BindPort)
	}
	n := &ClusterNode{
		Config:   config,
		name:     config.Cluster.Name,
		pending:  make(map[uint64]chan []Entry),
		configCh: make(chan *Config, 1),
	}

	mlist, err := CreateMemberList(config.Cluster, n.ProcessMsg)
	if err != nil {
		return nil, err
	}
	n.MList = mlist

	if inherit {
		if err := n.inheritConfig(); err != nil {
			mlist.Shutdown()
			return nil, err
		}
	}

	engine, err := CreateEngine(config.Capacity, config.HashFunc())
	if err != nil {
		mlist.Shutdown()
		return nil, err
	}
	n.mu.Lock()
	n.Engine = engine
	n.mu.Unlock()

	n.Server = InitServer(config.APIAddr, config.APIPort, engine, n.ClusterFrequent, sink, config.Threshold)
	go func() {
		if err := n.Server.Start(); err != nil {
			log.Errorf("API server stopped: %v", err)
		}
	}()

	log.Infof("Node %s started with %d buckets", n.name, engine.Capacity())
	return n, nil
}

func (n *ClusterNode) Name() string {
	return n.name
}

func (n *ClusterNode) engine() *Engine {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Engine
}

func (n *ClusterNode) inheritConfig() error {
	peers := n.MList.OtherMembers()
	if len(peers) == 0 {
		return errors.New("inherit config: no peers to ask")
	}
	if err := n.RequestConfig(peers[0].Name); err != nil {
		return errors.Wrap(err, "inherit config")
	}
	select {
	case cfg := <-n.configCh:
		n.Config.AdoptTableSettings(cfg)
		log.Infof("Using table settings from %s: capacity=%d hasher=%s threshold=%d",
			peers[0].Name, cfg.Capacity, cfg.Hasher, cfg.Threshold)
		return n.Config.Validate()
	case <-time.After(n.Config.Timeout()):
		return errors.Wrap(ErrClusterTimeout, "inherit config")
	}
}

// ClusterFrequent collects the counts of every live member, sums them with the
// local ones and returns the merged entries above threshold.
func (n *ClusterNode) ClusterFrequent(threshold int) ([]Entry, error) {
	defer metrics.MeasureSince([]string{"cluster", "frequent"}, time.Now())
	peers := n.MList.OtherMembers()

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	ch := make(chan []Entry, len(peers))
	n.pending[id] = ch
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.pending, id)
		n.mu.Unlock()
	}()

	expected := 0
	for _, peer := range peers {
		if err := n.RequestCounts(id, peer.Name); err != nil {
			log.Warnf("Requesting counts from %s: %v", peer.Name, err)
			continue
		}
		expected++
	}

	batches := [][]Entry{n.Engine.Frequent(0)}
	timeout := time.After(n.Config.Timeout())
	for len(batches) <= expected {
		select {
		case entries := <-ch:
			batches = append(batches, entries)
		case <-timeout:
			return nil, errors.Wrapf(ErrClusterTimeout, "%d of %d members answered", len(batches)-1, expected)
		}
	}

	merged, err := MergeEntries(n.Config.Capacity, n.Config.HashFunc(), threshold, batches...)
	if err != nil {
		return nil, err
	}
	SortEntries(merged)
	return merged, nil
}

// Stop shuts the API down, leaves the cluster and tears down the table. Only
// the first call does anything.
func (n *ClusterNode) Stop() {
	n.stopOnce.Do(n.stop)
}

func (n *ClusterNode) stop() {
	if n.Server != nil {
		n.Server.Stop()
	}
	if err := n.MList.Shutdown(); err != nil {
		log.Warnf("Memberlist shutdown: %v", err)
	}
	if e := n.engine(); e != nil {
		e.Close()
	}
	log.Infof("Node %s stopped", n.name)
}
