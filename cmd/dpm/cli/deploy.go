package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/deploykit/dpm-cli/internal/application"
	"github.com/deploykit/dpm-cli/internal/infrastructure/console"
	"github.com/deploykit/dpm-cli/internal/infrastructure/logging"
	"github.com/deploykit/dpm-cli/internal/infrastructure/specfile"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deployName    string
	deployOrg     string
	deployUser    string
	deployWait    bool
	deploySecrets []string
	deployWatch   bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <specfile>",
	Short: "Deploy a project specfile and wait for it to settle",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		out := console.New(os.Stdout)
		tracker := application.NewTracker(client, out, application.SystemSleeper, log, cfg.Poll.Interval, cfg.Poll.Settle)
		uc := application.NewDeployUseCase(client, out, tracker, log)

		path := args[0]
		deployOnce := func(ctx context.Context) error {
			spec, err := specfile.Load(path)
			if err != nil {
				return err
			}
			if len(deploySecrets) > 0 {
				out.Progress("Parsing and merging secrets...")
				if err := specfile.MergeSecrets(&spec, deploySecrets); err != nil {
					return err
				}
			}
			_, err = uc.Run(ctx, spec, application.DeployOptions{
				Name:        deployName,
				Org:         deployOrg,
				User:        deployUser,
				DefaultOrg:  cfg.Defaults.Org,
				DefaultUser: cfg.Defaults.User,
				Wait:        deployWait,
			})
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := deployOnce(ctx); err != nil {
			return err
		}

		if !deployWatch {
			return nil
		}

		log.Info("watching specfile",
			zap.String("specfile", path),
			zap.String("project", deployName),
		)
		return watchAndRedeploy(ctx, path, log, deployOnce)
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployName, "name", "", "override the project name")
	deployCmd.Flags().StringVar(&deployOrg, "org", "", "override the project organization")
	deployCmd.Flags().StringVar(&deployUser, "user", "", "override the project owner email")
	deployCmd.Flags().BoolVar(&deployWait, "wait", true, "wait for the deployment to settle")
	deployCmd.Flags().StringArrayVarP(&deploySecrets, "secrets", "s", nil,
		"replace secret data values, i.e. secret-name:key1=value1,key2=value2")
	deployCmd.Flags().BoolVar(&deployWatch, "watch", false, "redeploy whenever the specfile changes")

	rootCmd.AddCommand(deployCmd)
}

// watchAndRedeploy blocks until ctx is cancelled, redeploying the
// specfile on every change. Editors fire several events per save, so
// redeploys are debounced.
func watchAndRedeploy(ctx context.Context, path string, log *zap.Logger, redeploy func(context.Context) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	fire := func() {
		if err := redeploy(ctx); err != nil {
			log.Warn("redeploy failed", zap.String("specfile", path), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != base {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if timer == nil {
					timer = time.AfterFunc(300*time.Millisecond, fire)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(300 * time.Millisecond)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("fsnotify error", zap.Error(err))
		}
	}
}
