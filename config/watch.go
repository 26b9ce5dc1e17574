package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Watch re-runs Load whenever the backing config file changes and hands
// the result to onChange. A reload that fails validation is logged and
// dropped, so the previous configuration stays active. Without a config
// file on disk there is nothing to watch and Watch is a no-op.
//
// When several files are merged, the first is the one watched; a reload
// re-reads them all.
func Watch(configFiles []string, flags *pflag.FlagSet, onChange func(*Config)) {
	v := viper.New()
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/retrace")
		v.AddConfigPath("/etc/retrace")
	}
	if err := v.ReadInConfig(); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load(configFiles, flags)
		if err != nil {
			slog.Warn("config reload failed, keeping previous settings", "file", e.Name, "err", err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
