package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipcomposer/internal/config"
	"clipcomposer/internal/crash"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/storage"
)

type commandContext struct {
	configFlag *string
	guard      *crash.Guard

	configOnce sync.Once
	config     config.AppConfig
	token      string
	configErr  error
}

func newCommandContext(configFlag *string, guard *crash.Guard) *commandContext {
	return &commandContext{configFlag: configFlag, guard: guard}
}

// ensureConfig loads the config once and initialises logging from it.
func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			if err := os.Setenv(config.EnvConfigPath, strings.TrimSpace(*c.configFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		cfg, token, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		applog.Init(cfg.LogOptions())
		c.config = cfg
		c.token = token
	})
	return c.config, c.configErr
}

// openProject opens dir and registers it with the crash guard.
func (c *commandContext) openProject(dir string) (*storage.ProjectHandle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	applog.WithComponent("cli").Debug("open project", slog.String("root", abs))
	ph, err := storage.Open(abs)
	if err != nil {
		return nil, err
	}
	if c.guard != nil {
		c.guard.Handle = ph
	}
	return ph, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func projectArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0]
	}
	return "."
}
