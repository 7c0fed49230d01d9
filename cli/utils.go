package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/stateestimator/config"
	"go.viam.com/stateestimator/logging"
	"go.viam.com/stateestimator/stateestimator"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for error when printing to stdout
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for error when printing to stdout
	fmt.Fprintf(w, "\033[1mWarning:\033[0m "+format+"\n", a...)
}

// loadConfig reads the config named by the global config flag.
func loadConfig(c *cli.Context) (*stateestimator.Config, error) {
	return config.Read(c.String(configFlag))
}

// newLogger builds the command logger. Logs go to the app's error writer so they never mix with
// published messages, and also to a rotating file when the config names one.
func newLogger(c *cli.Context, conf *stateestimator.Config) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("state-estimator")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if !c.Bool(debugFlag) {
		logger.SetLevel(logging.INFO)
	}
	closer := func() { goutils.UncheckedError(logger.Sync()) }
	if fileConfig, ok := conf.Log.FileConfig(); ok {
		appender := logging.NewFileAppender(fileConfig)
		logger.AddAppender(appender)
		closer = func() {
			goutils.UncheckedError(logger.Sync())
			goutils.UncheckedError(appender.Close())
		}
	}
	return logger, closer
}

// openOutput opens the file published messages are written to. "-" is the app's writer.
func openOutput(c *cli.Context, path string) (io.Writer, func() error, error) {
	if path == stdoutOutputPath {
		return c.App.Writer, func() error { return nil }, nil
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
