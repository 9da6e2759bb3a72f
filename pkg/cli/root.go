// Package cli wires the cloudtodo commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/cloudtodo/pkg/config"
	"github.com/harrisonrobin/cloudtodo/pkg/identity"
	"github.com/harrisonrobin/cloudtodo/pkg/logger"
	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/taskstore"
	"github.com/harrisonrobin/cloudtodo/pkg/todoapi"
)

const sessionFile = "session.json"

// app carries the state shared by all commands of one invocation.
type app struct {
	cfgPath string
	verbose bool

	cfg *config.Config
	log *zap.Logger
	now func() time.Time

	// cognito replaces the AWS client when set.
	cognito identity.CognitoAPI
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{now: time.Now}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cloudtodo",
		Short: "cloudtodo - tasks with deadlines, synced to your account",
		Long: `cloudtodo keeps a to-do list in a hosted task API.

Tasks past their deadline show up as Expired until they are completed.
Sign in with 'cloudtodo login' before using the task commands.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				logger.Sync(a.log)
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Config file (default ~/.config/cloudtodo/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(a.signupCmd())
	root.AddCommand(a.confirmCmd())
	root.AddCommand(a.loginCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.whoamiCmd())
	root.AddCommand(a.listCmd())
	root.AddCommand(a.addCmd())
	root.AddCommand(a.setStatusCmd("done", "Mark a task completed", model.Completed))
	root.AddCommand(a.setStatusCmd("undo", "Mark a task pending again", model.Pending))
	root.AddCommand(a.toggleCmd())
	root.AddCommand(a.statusCmd())
	root.AddCommand(a.editCmd())
	root.AddCommand(a.rmCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(a.agendaCmd())
	root.AddCommand(a.configCmd())
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Development = true
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	a.log.Debug("config loaded", zap.String("command", cmd.CommandPath()), zap.String("api_url", cfg.APIURL))
	return nil
}

// describe adds a hint to errors the user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, identity.ErrNoSession):
		return err.Error() + " (run `cloudtodo login`)"
	case errors.Is(err, todoapi.ErrAuth):
		return err.Error() + " (your session may have been revoked; run `cloudtodo login`)"
	}
	return err.Error()
}

func (a *app) provider(ctx context.Context) (*identity.Provider, error) {
	if a.cfg.Region == "" || a.cfg.UserPoolClientID == "" {
		return nil, errors.New("region and user_pool_client_id must be configured (see `cloudtodo config set`)")
	}
	api := a.cognito
	if api == nil {
		c, err := identity.NewCognitoAPI(ctx, a.cfg.Region)
		if err != nil {
			return nil, err
		}
		api = c
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	store := identity.SessionFile{Path: filepath.Join(dir, sessionFile)}
	return identity.NewProvider(api, a.cfg.UserPoolClientID, store, a.log), nil
}

func (a *app) client(ctx context.Context) (*todoapi.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}
	return todoapi.NewClient(a.cfg.APIURL, p.TokenSource(ctx),
		todoapi.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		todoapi.WithLogger(a.log),
	), nil
}

func (a *app) syncer(ctx context.Context) (*taskstore.Syncer, *todoapi.Client, error) {
	c, err := a.client(ctx)
	if err != nil {
		return nil, nil, err
	}
	return taskstore.NewSyncer(c, nil, a.log), c, nil
}
