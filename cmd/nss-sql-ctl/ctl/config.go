package ctl

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/consts"
	"github.com/ubuntu/nss-sql/internal/nss"
	"github.com/ubuntu/nss-sql/log"
)

// initViperConfig sets verbosity level and binds the env variables starting with the prefix.
func initViperConfig(prefix string, cmd *cobra.Command, vip *viper.Viper) (err error) {
	defer decorate.OnError(&err, "can't load configuration")

	// Get cmdline flag for verbosity to configure logger until we have everything parsed.
	v, err := cmd.Flags().GetCount("verbosity")
	if err != nil {
		return fmt.Errorf("internal error: no persistent verbosity flag installed on cmd: %w", err)
	}
	setVerboseMode(v)

	vip.SetEnvPrefix(prefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vip.AutomaticEnv()

	// Visit manually env to bind every possibly related environment variable to be able to unmarshall
	// those into a struct.
	// More context on https://github.com/spf13/viper/pull/1429.
	envPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, envPrefix) {
			continue
		}

		s := strings.SplitN(e, "=", 2)
		k := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s[0], envPrefix)), "_", "-")
		if err := vip.BindEnv(k, s[0]); err != nil {
			return fmt.Errorf("could not bind environment variable: %w", err)
		}
	}

	return nil
}

// installVerbosityFlag adds the -v and -vv options and returns the reference to it.
func installVerbosityFlag(cmd *cobra.Command, vip *viper.Viper) *int {
	r := cmd.PersistentFlags().CountP("verbosity", "v", "issue INFO (-v) or DEBUG (-vv) output")
	decorate.LogOnError(vip.BindPFlag("verbosity", cmd.PersistentFlags().Lookup("verbosity")))
	return r
}

// installPathFlags adds the options selecting the configuration files, the
// initial buffer size and the metrics file.
func installPathFlags(cmd *cobra.Command, vip *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", consts.DefaultConfigPath, "use a specific module configuration file")
	flags.String("root-config", consts.DefaultRootConfigPath, "use a specific root configuration file, holding the shadow connection")
	flags.Int("buffer-size", nss.DefaultBufferSize, "initial size in bytes of the record buffer, doubled until the entry fits")
	flags.String("metrics-file", "", "write the lookup metrics to this file in the Prometheus text format")

	for _, name := range []string{"config", "root-config", "buffer-size", "metrics-file"} {
		decorate.LogOnError(vip.BindPFlag(name, flags.Lookup(name)))
	}
}

// setVerboseMode change the log level between very, middly and non verbose.
func setVerboseMode(level int) {
	switch level {
	case 0:
		log.SetLevel(consts.DefaultLogLevel)
	case 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
