package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/denysvitali/ipos-browser-go/pkg/config"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
	"github.com/denysvitali/ipos-browser-go/pkg/storage"
	"github.com/denysvitali/ipos-browser-go/pkg/telemetry"
)

// cliReloader is the command line analogue of a page reload: the current
// invocation cannot recover, so it tells the user what to do next.
type cliReloader struct{}

func (cliReloader) Reload(reason session.ReloadReason) {
	switch reason {
	case session.ReloadAuthExpired:
		logger.Warn("Session expired, run `ipos-browser login` again")
	case session.ReloadVersionSkew:
		logger.Warn("The IPOS server was updated, upgrade ipos-browser and re-run the command")
	}
}

// newSession builds a session from cfg bound to reloader
func newSession(cfg *config.Config, store storage.Store, reloader session.Reloader) (*session.Session, error) {
	opts := []session.Option{
		session.WithPrefix(cfg.Server.Prefix),
		session.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
		session.WithReloader(reloader),
		session.WithLogger(logger),
		session.WithTracer(telemetry.Tracer()),
	}
	if cfg.Server.UIVersion != "" {
		opts = append(opts, session.WithUIVersion(cfg.Server.UIVersion))
	}
	return session.New(cfg.Server.URL, store, opts...)
}

// withSession loads the configuration, opens the token store and runs fn
// against a CLI session.
func withSession(fn func(cmd *cobra.Command, args []string, sess *session.Session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		store, err := storage.Open(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		defer func() {
			if err := storage.Close(store); err != nil {
				logger.Warnf("Failed to close token store: %v", err)
			}
		}()

		sess, err := newSession(cfg, store, cliReloader{})
		if err != nil {
			return err
		}

		if updated, err := sess.NewlyUpdated(); err != nil {
			logger.Debugf("Failed to read update flag: %v", err)
		} else if updated {
			logger.Info("The IPOS server was updated since the last run")
		}

		return fn(cmd, args, sess)
	}
}

// printResult writes v to the command output in the selected format
func printResult(cmd *cobra.Command, v interface{}) error {
	switch format := viper.GetString("output"); format {
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(toPlain(v))
	case "json", "":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// toPlain round-trips v through JSON so YAML output uses the wire field
// names.
func toPlain(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return v
	}
	return plain
}
