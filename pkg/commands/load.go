package commands

import (
	"io"
	"log/slog"

	"tableflip.dev/acctview/pkg/app"
	"tableflip.dev/acctview/pkg/config"
	"tableflip.dev/acctview/pkg/source"
)

// environment is what every command needs: the config, the logger and the
// disk source.
type environment struct {
	cfg   config.Config
	log   *slog.Logger
	disk  *source.Disk
	close func() error
}

// load reads the config and opens the data directory. Log records go to the
// configured log file, otherwise to logOut.
func load(logOut io.Writer) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := config.NewLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	disk, err := source.Load(cfg, source.WithLogger(log))
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	return &environment{cfg: cfg, log: log, disk: disk, close: closeLog}, nil
}

func (e *environment) service() *app.Service {
	return &app.Service{Config: e.cfg, Disk: e.disk, Logger: e.log}
}
