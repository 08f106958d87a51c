package actions

import (
	"context"
	"fmt"

	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/normalize"
	"github.com/relloyd/silverpipe/stats"
)

// ActionRequest is the generic input of an action launched by name.
type ActionRequest struct {
	Settings  *config.Config
	Log       logger.Logger
	Store     blob.Store
	Stats     *stats.Manager
	RunID     string
	Retailers []string
}

type Action struct {
	FnAction   func(ctx context.Context, actionCfg interface{}) (interface{}, error) // the function to execute the action
	FnSetupCfg func(req *ActionRequest) (interface{}, error)                         // converts the generic request to the action-specific config
}

// ActionFuncs is a register of the actions that 12-factor mode can launch.
var ActionFuncs = map[string]Action{
	constants.ActionFuncsCommandRun:  {FnAction: runIngestAction, FnSetupCfg: setupIngest},
	constants.ActionFuncsCommandPull: {FnAction: runPullAction, FnSetupCfg: setupPull},
}

// ActionLauncher will:
// 1) find the Action{} registered for command;
// 2) call Action.FnSetupCfg() to build its config from req;
// 3) then run Action.FnAction() and return its result.
func ActionLauncher(ctx context.Context, req *ActionRequest, command string) (interface{}, error) {
	a, ok := ActionFuncs[command]
	if !ok {
		return nil, fmt.Errorf("unsupported command %q", command)
	}
	cfg, err := a.FnSetupCfg(req)
	if err != nil {
		return nil, err
	}
	return a.FnAction(ctx, cfg)
}

func setupIngest(req *ActionRequest) (interface{}, error) {
	cfg := NewIngestConfig(req.Settings, req.RunID)
	cfg.Log = req.Log
	cfg.Store = req.Store
	cfg.Stats = req.Stats
	cfg.Retailers = req.Retailers
	return cfg, nil
}

func runIngestAction(ctx context.Context, actionCfg interface{}) (interface{}, error) {
	return RunIngest(ctx, actionCfg.(*IngestConfig))
}

func setupPull(req *ActionRequest) (interface{}, error) {
	retailers := req.Retailers
	if len(retailers) == 0 {
		retailers = normalize.Retailers
	}
	cfgs := make([]*PullConfig, 0, len(retailers))
	for _, r := range retailers {
		cfgs = append(cfgs, &PullConfig{
			Log:       req.Log,
			Store:     req.Store,
			Settings:  req.Settings,
			Retailer:  r,
			RunID:     req.RunID,
			RawPrefix: req.Settings.Store.RawPrefix,
		})
	}
	return cfgs, nil
}

func runPullAction(ctx context.Context, actionCfg interface{}) (interface{}, error) {
	written := make([]string, 0)
	for _, cfg := range actionCfg.([]*PullConfig) {
		name, err := RunPull(ctx, cfg)
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}
