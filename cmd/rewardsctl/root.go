package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aimd54/campus-rewards/internal/cache"
	"github.com/aimd54/campus-rewards/internal/config"
	"github.com/aimd54/campus-rewards/internal/mattermost"
	"github.com/aimd54/campus-rewards/internal/repository"
	"github.com/aimd54/campus-rewards/internal/service/leaderboard"
	"github.com/aimd54/campus-rewards/internal/service/ledger"
	"github.com/aimd54/campus-rewards/internal/service/levels"
	"github.com/aimd54/campus-rewards/internal/service/reset"
	"github.com/aimd54/campus-rewards/internal/service/revocation"
	"github.com/aimd54/campus-rewards/internal/service/rewards"
	"github.com/aimd54/campus-rewards/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "rewardsctl",
	Short:         "Campus reward ledger and period reset engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
}

// app holds every wired component. Commands build only what they use.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *repository.DB
	cache *cache.Cache
	repos *repository.Repositories

	ledger      *ledger.Service
	rewards     *rewards.Service
	revocation  *revocation.Service
	reset       *reset.Service
	leaderboard *leaderboard.Service
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithRotation(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, logger.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   true,
	})
	return cfg, log, nil
}

// newApp connects to postgres and redis and builds the services.
func newApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.New(&cfg.Database.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db, cache: redisCache}
	if err := a.buildServices(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildServices() error {
	calc, err := levels.New(a.cfg.Levels.Thresholds)
	if err != nil {
		return fmt.Errorf("invalid level table: %w", err)
	}

	serverLoc, err := a.cfg.Server.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid server timezone: %w", err)
	}
	resetLoc, err := a.cfg.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	a.repos = repository.NewRepositories(a.db)
	a.ledger = ledger.NewService(a.repos.Ledger, calc, a.log.Component("ledger"))
	a.rewards = rewards.NewService(a.db, a.repos, a.ledger, a.cfg.Rewards, serverLoc, a.log.Component("rewards"))
	a.revocation = revocation.NewService(a.repos.Events, a.repos.Polls, a.ledger, a.cfg.Rewards, a.log.Component("revocation"))
	a.reset = reset.NewService(
		a.db, a.repos, a.cache,
		mattermost.NewClient(&a.cfg.Mattermost, a.log.Component("mattermost")),
		resetLoc, a.cfg.Scheduler.LockTTL, a.log.Component("reset"),
	)
	a.leaderboard = leaderboard.NewService(a.repos, calc, a.cfg.Leaderboard, a.log.Component("leaderboard"))
	return nil
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// now is overridden in tests.
var now = time.Now
