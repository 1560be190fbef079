package commands

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/claudewire/claudewire/internal/app"
)

// loadConfig resolves the config file path from the --config flag, falling
// back to the per-user default location. A missing file at the default
// location is fine; a missing explicitly named file is an error.
func loadConfig(cmd *cli.Command) (*app.Config, error) {
	path := cmd.String("config")
	explicit := path != ""
	if !explicit {
		if configDir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(configDir, "claudewire", "config.toml")
		}
	}
	return app.LoadConfig(path, explicit)
}
