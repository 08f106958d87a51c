package actions

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stats"
	"github.com/relloyd/silverpipe/upsert"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		return nil, fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
	}
	return json.Marshal(retval)
}

const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	RunID     string   `json:"runId"`
	Retailers []string `json:"retailers"`
	Parallel  *bool    `json:"parallel"`
}

type RunInfo struct {
	RunID     string         `json:"runId"`
	Retailers []string       `json:"retailers"`
	Status    string         `json:"runStatus"`
	Started   time.Time      `json:"started"`
	Finished  *time.Time     `json:"finished,omitempty"`
	Results   []IngestResult `json:"results,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type ResponseRunLaunch struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunID   string            `json:"runId"`
}

type ResponseRunList struct {
	Status WebServerResponse `json:"status"`
	Runs   []RunInfo         `json:"runs"`
}

type ResponseRunStatus struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Run     *RunInfo          `json:"run,omitempty"`
}

type ResponseRunStats struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Stats   []stats.Stats     `json:"runStats"`
}

type ResponsePartition struct {
	Status  WebServerResponse        `json:"status"`
	Message string                   `json:"message"`
	Name    string                   `json:"name"`
	Rows    []map[string]interface{} `json:"rows"`
}

// runRegistry tracks the runs launched over HTTP.
type runRegistry struct {
	mu     sync.RWMutex
	runs   map[string]*RunInfo
	wg     sync.WaitGroup
	closed bool
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*RunInfo)}
}

// start registers a run. It fails if the id is taken or the server is shutting down.
func (r *runRegistry) start(id string, retailers []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("server is shutting down")
	}
	if _, ok := r.runs[id]; ok {
		return fmt.Errorf("run %v already exists", id)
	}
	r.runs[id] = &RunInfo{RunID: id, Retailers: retailers, Status: RunStatusRunning, Started: time.Now().UTC()}
	r.wg.Add(1)
	return nil
}

func (r *runRegistry) finish(id string, results []IngestResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ri := r.runs[id]
	now := time.Now().UTC()
	ri.Finished = &now
	ri.Results = results
	ri.Status = RunStatusComplete
	if err != nil {
		ri.Status = RunStatusFailed
		ri.Error = err.Error()
	}
	r.wg.Done()
}

func (r *runRegistry) load(id string) (RunInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ri, ok := r.runs[id]
	if !ok {
		return RunInfo{}, false
	}
	return *ri, true
}

func (r *runRegistry) list() []RunInfo {
	r.mu.RLock()
	retval := make([]RunInfo, 0, len(r.runs))
	for _, ri := range r.runs {
		retval = append(retval, *ri)
	}
	r.mu.RUnlock()
	sort.Slice(retval, func(i, j int) bool { return retval[i].Started.Before(retval[j].Started) })
	return retval
}

func (r *runRegistry) closeForLaunch() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *runRegistry) wait() {
	r.wg.Wait()
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // already stopping
		}
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// handleRunLaunch starts an ingestion run in the background and returns its id.
func (s *server) handleRunLaunch(w http.ResponseWriter, r *http.Request) {
	b, _ := ioutil.ReadAll(r.Body)
	req := RunRequest{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			logAndRespond(s.log, err, w, ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
			return
		}
	}
	if req.RunID == "" {
		req.RunID = s.newRunID()
	}
	cfg := NewIngestConfig(s.settings, req.RunID)
	cfg.Log = s.log
	cfg.Store = s.store
	cfg.Stats = s.stats
	cfg.Retailers = req.Retailers
	if req.Parallel != nil {
		cfg.Parallel = *req.Parallel
	}
	if err := validateIngest(cfg); err != nil {
		logAndRespond(s.log, err, w, ResponseRunLaunch{Status: Error, Message: err.Error(), RunID: req.RunID})
		return
	}
	if err := s.runs.start(req.RunID, req.Retailers); err != nil {
		logAndRespond(s.log, err, w, ResponseRunLaunch{Status: Error, Message: err.Error(), RunID: req.RunID})
		return
	}
	go func() {
		results, err := RunIngest(s.ctx, cfg)
		if err != nil {
			s.log.Error("run ", req.RunID, " failed: ", err)
		}
		s.runs.finish(req.RunID, results, err)
	}()
	w.WriteHeader(http.StatusOK)
	respond(s.log, w, ResponseRunLaunch{Status: Okay, Message: "run launched", RunID: req.RunID})
}

func (s *server) handleRunList(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	respond(s.log, w, ResponseRunList{Status: Okay, Runs: s.runs.list()})
}

func (s *server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["runId"]
	ri, ok := s.runs.load(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		s.log.Info("HTTP request status of run ", id, " that doesn't exist.")
		respond(s.log, w, ResponseRunStatus{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
		return
	}
	w.WriteHeader(http.StatusOK)
	respond(s.log, w, ResponseRunStatus{Status: Okay, Run: &ri})
}

func (s *server) handleRunStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["runId"]
	if _, ok := s.runs.load(id); !ok {
		w.WriteHeader(http.StatusNotFound)
		respond(s.log, w, ResponseRunStats{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
		return
	}
	list := make([]stats.Stats, 0)
	for _, st := range s.stats.GetStats() {
		if strings.HasPrefix(st.RunName, id+"/") {
			list = append(list, st)
		}
	}
	w.WriteHeader(http.StatusOK)
	respond(s.log, w, ResponseRunStats{Status: Okay, Stats: list})
}

// handlePartition returns the current view of a partition as JSON rows.
func (s *server) handlePartition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	e := upsert.NewEngine(s.log, s.store, s.settings.Silver.Prefix)
	name := e.CurrentName(vars["retailer"], vars["date"])
	text, err := s.store.ReadText(r.Context(), name)
	if err != nil {
		status := http.StatusInternalServerError
		if stderrors.Is(err, blob.ErrNotFound) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		respond(s.log, w, ResponsePartition{Status: Error, Message: err.Error(), Name: name})
		return
	}
	t, err := codec.DecodeCSV(strings.NewReader(text))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		respond(s.log, w, ResponsePartition{Status: Error, Message: err.Error(), Name: name})
		return
	}
	rows := make([]map[string]interface{}, 0, t.Len())
	for _, rec := range t.Rows {
		rows = append(rows, rec.GetDataMap())
	}
	w.WriteHeader(http.StatusOK)
	respond(s.log, w, ResponsePartition{Status: Okay, Name: name, Rows: rows})
}

// logAndRespond will log the error, write a http.StatusBadRequest and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, r interface{}) {
	log.Error(err)
	w.WriteHeader(http.StatusBadRequest)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error(err)
		return
	}
	if _, err = fmt.Fprint(w, string(j)); err != nil {
		log.Error(err)
	}
}
