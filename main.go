package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"lookupdesk/cmd"
	"lookupdesk/config"
	"lookupdesk/logger"
)

func main() {
	// Defaults until PersistentPreRunE applies --config, --app-log and --log-level.
	cfgPaths := config.GetDefaultConfigPaths()
	if err := logger.InitGlobalLoggers(cfgPaths.LogPathApp, cfgPaths.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize default global loggers: %v\n", err)
		os.Exit(1)
	}

	code := run()
	logger.CloseLogFiles()
	os.Exit(code)
}

// run executes the command tree and turns a panic into exit status 2 so the
// log file is still closed.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("lookupdesk panicked: %v\n%s", r, debug.Stack())
			code = 2
		}
	}()
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
