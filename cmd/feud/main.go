package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	relayURL string
	verbose  bool
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	// The terminal is the UI; keep production logs out of the way.
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newRootCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FEUD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "feud",
		Short:         "Family Feud style live quiz over a peer relay.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&cfg.relayURL, "relay", "ws://localhost:8080", "relay base URL (env: FEUD_RELAY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "development-style logging (env: FEUD_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newHostCmd(cfg))
	cmd.AddCommand(newJoinCmd(cfg))
	return cmd
}

func main() {
	_ = godotenv.Load()
	cfg := &Config{}
	cobra.CheckErr(newRootCmd(cfg).Execute())
}
