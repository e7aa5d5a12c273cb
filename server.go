package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/armon/go-metrics"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type APIServer struct {
	h         *http.Server
	addr      string
	port      string
	engine    *Engine
	cluster   func(threshold int) ([]Entry, error)
	sink      *metrics.InmemSink
	threshold int
}

// InitServer wires the API to an engine. cluster may be nil on a node that
// runs alone, and sink may be nil when metrics are off.
func InitServer(addr, port string, engine *Engine, cluster func(threshold int) ([]Entry, error), sink *metrics.InmemSink, threshold int) *APIServer {
	s := &APIServer{
		addr:      addr,
		port:      port,
		engine:    engine,
		cluster:   cluster,
		sink:      sink,
		threshold: threshold,
	}
	s.h = &http.Server{
		Addr:    addr + ":" + port,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routed and request logged API.
func (s *APIServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/read", s.readHandler).Methods(http.MethodGet)
	r.HandleFunc("/write", s.writeHandler).Methods(http.MethodPost)
	r.HandleFunc("/delete", s.deleteHandler).Methods(http.MethodPost)
	r.HandleFunc("/frequent", s.frequentHandler).Methods(http.MethodGet)
	r.HandleFunc("/cluster/frequent", s.clusterFrequentHandler).Methods(http.MethodGet)
	r.HandleFunc("/ingest", s.ingestHandler).Methods(http.MethodPost)
	r.HandleFunc("/metrics", s.metricsHandler).Methods(http.MethodGet)
	return handlers.LoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), r)
}

func (s *APIServer) Start() error {
	log.Info("Starting server at " + s.addr + ":" + s.port)

	err := s.h.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) readHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	log.Infof("Server processing read request for key=%s", key)
	count, err := s.engine.Read(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Entry{Key: key, Count: count})
}

func (s *APIServer) writeHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	log.Infof("Server processing write request for key=%s", key)
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing key"))
		return
	}
	delta := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.Errorf("bad count %q", raw))
			return
		}
		delta = n
	}
	count := s.engine.Add(key, delta)
	writeJSON(w, http.StatusOK, Entry{Key: key, Count: count})
}

func (s *APIServer) deleteHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	log.Infof("Server processing delete request for key=%s", key)
	if !s.engine.Delete(key) {
		writeError(w, http.StatusNotFound, ErrKeyNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *APIServer) frequentHandler(w http.ResponseWriter, r *http.Request) {
	threshold, err := s.thresholdParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log.Infof("Server processing frequent request with threshold=%d", threshold)
	entries := s.engine.Frequent(threshold)
	SortEntries(entries)
	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *APIServer) clusterFrequentHandler(w http.ResponseWriter, r *http.Request) {
	threshold, err := s.thresholdParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log.Infof("Server processing cluster frequent request with threshold=%d", threshold)
	if s.cluster == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("not part of a cluster"))
		return
	}
	entries, err := s.cluster(threshold)
	if err != nil {
		if errors.Is(err, ErrClusterTimeout) {
			writeError(w, http.StatusGatewayTimeout, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

type IngestResponse struct {
	IngestStats
	Error string `json:"error,omitempty"`
}

// ingestHandler counts the request body. Ingest is not atomic: when the body
// fails part way (a token over MaxTokenSize) the response is 400, but the words
// before the failure stay counted and the body reports them in its stats.
func (s *APIServer) ingestHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	log.Infof("Server processing ingest request")
	stats, err := s.engine.Ingest(r.Body)
	if err != nil {
		log.Warnf("Partial ingest (%s): %v", stats, err)
		writeJSON(w, http.StatusBadRequest, IngestResponse{IngestStats: stats, Error: err.Error()})
		return
	}
	log.Infof("Ingested %s", stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *APIServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		writeError(w, http.StatusNotFound, errors.New("metrics disabled"))
		return
	}
	summary, err := s.sink.DisplayMetrics(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *APIServer) thresholdParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return s.threshold, nil
	}
	t, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("bad threshold %q", raw)
	}
	return t, nil
}

func (s *APIServer) Stop() {
	s.h.Close()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	w.Write([]byte(err.Error()))
}

func nonNil(entries []Entry) []Entry {
	if entries == nil {
		return []Entry{}
	}
	return entries
}
