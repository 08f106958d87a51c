package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stats"
	"github.com/rs/xid"
)

const (
	urlContextRuns = "/runs"
)

type WebServerConfig struct {
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	Scheme                    string `errorTxt:"scheme" mandatory:"no"`
	Addr                      net.IP `errorTxt:"address" mandatory:"no"`
	Port                      int    `errorTxt:"port" mandatory:"yes"`
	Settings                  *config.Config
	Store                     blob.Store
	StatsDumpFrequencySeconds int
	StackDumpOnPanic          bool
}

// server holds what the handlers share.
type server struct {
	log      logger.Logger
	settings *config.Config
	store    blob.Store
	stats    *stats.Manager
	runs     *runRegistry
	ctx      context.Context // cancelled on shutdown so running ingests stop
	newRunID func() string
	chanStop chan string
}

func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	if web.Settings == nil || web.Store == nil {
		return errors.New("web server needs settings and a store")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logger.NewWebLogger("silverpipe", web.LogLevel, web.StackDumpOnPanic, cancel) // stop running ingests on fatal
	s := newServer(ctx, log, web)
	s.stats.StartDumping()
	defer s.stats.StopDumping()
	srv := runServer(log, web, s)
	return waitForServer(log, srv, s, cancel)
}

func newServer(ctx context.Context, log logger.Logger, web *WebServerConfig) *server {
	return &server{
		log:      log,
		settings: web.Settings,
		store:    web.Store,
		stats:    stats.NewManager(log, stats.SetStatsDumpFrequency(web.StatsDumpFrequencySeconds)),
		runs:     newRunRegistry(),
		ctx:      ctx,
		newRunID: func() string { return xid.New().String() },
		chanStop: make(chan string, 1),
	}
}

// router creates the routes.
func (s *server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(s.log, s.chanStop))
	r.Path("/health").HandlerFunc(GetHandlerHealth(s.log))
	r.Path(urlContextRuns).Methods(http.MethodPost).Headers("Content-Type", "application/json").HandlerFunc(s.handleRunLaunch)
	r.Path(urlContextRuns).Methods(http.MethodGet).HandlerFunc(s.handleRunList)
	r.Path(urlContextRuns + "/{runId}").Methods(http.MethodGet).HandlerFunc(s.handleRunStatus)
	r.Path(urlContextRuns + "/{runId}/stats").Methods(http.MethodGet).HandlerFunc(s.handleRunStats)
	r.Path("/partitions/{retailer}/{date}").Methods(http.MethodGet).HandlerFunc(s.handlePartition)
	return r
}

// runServer starts a web server in the background and returns it.
func runServer(log logger.Logger, web *WebServerConfig, s *server) *http.Server {
	srv := &http.Server{ // Good practice to set timeouts to avoid Slowloris attacks.
		Addr:         fmt.Sprintf("%v:%v", addrOrEmpty(web.Addr), web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      s.router(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Panic(err)
			}
		}
	}()
	scheme := web.Scheme
	if scheme == "" {
		scheme = "http"
	}
	log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(scheme), addrOrEmpty(web.Addr), web.Port))
	return srv
}

func addrOrEmpty(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

// waitForServer blocks until /stop is called or SIGINT arrives, then stops running ingests and the server.
func waitForServer(log logger.Logger, srv *http.Server, s *server, cancelRuns context.CancelFunc) error {
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	select {
	case <-s.chanStop:
	case <-chanOS:
	}
	fmt.Println() // print new line char for clean looking CLI.
	log.Info("Shutting down web server...")
	s.runs.closeForLaunch()
	cancelRuns()
	s.runs.wait()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx) // waits for open connections until the deadline
}
