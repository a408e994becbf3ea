package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	AppLogger   *logrus.Logger
	ErrorLogger *logrus.Logger

	logLevel    string
	appLogFile  *os.File
	initialized bool
)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	}
	l.Out = out
	l.Level = level
	return l
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	}
	return logrus.InfoLevel
}

// InitGlobalLoggers opens appLogPath for Info/Debug/Warn output. Errors always
// go to stderr as well. An empty appLogPath logs everything to stderr.
func InitGlobalLoggers(appLogPath, level string) error {
	if initialized && appLogFile != nil && strings.ToUpper(level) == logLevel {
		return nil
	}
	if appLogFile != nil {
		appLogFile.Close()
		appLogFile = nil
	}

	logLevel = strings.ToUpper(level)
	if logLevel == "" {
		logLevel = "INFO"
	}
	lvl := parseLevel(logLevel)

	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)

	actualAppLogPath := appLogPath
	var appLogWriter io.Writer = os.Stderr
	if appLogPath == "" {
		actualAppLogPath = "(stderr)"
	} else if err := os.MkdirAll(filepath.Dir(appLogPath), 0750); err != nil {
		ErrorLogger.Errorf("Failed to create app log directory %s: %v. App logs (Info/Debug) will be discarded.", filepath.Dir(appLogPath), err)
		appLogWriter = io.Discard
		actualAppLogPath = "(discarded)"
	} else {
		f, err := os.OpenFile(appLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			ErrorLogger.Errorf("Failed to open app log file %s: %v. App logs (Info/Debug) will be discarded.", appLogPath, err)
			appLogWriter = io.Discard
			actualAppLogPath = "(discarded)"
		} else {
			appLogFile = f
			appLogWriter = f
		}
	}
	AppLogger = newLogger(appLogWriter, lvl)

	if !initialized {
		AppLogger.Infof("App logger initialized. Log level: %s. Output file: %s", logLevel, actualAppLogPath)
	}
	initialized = true
	return nil
}

// Discard silences all output; used by tests.
func Discard() {
	AppLogger = newLogger(io.Discard, logrus.DebugLevel)
	ErrorLogger = newLogger(io.Discard, logrus.ErrorLevel)
}

func Info(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Infof(format, v...)
	}
}

func Debug(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Debugf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if AppLogger != nil {
		AppLogger.Warnf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	if ErrorLogger != nil {
		ErrorLogger.Error(message)
	}
	if AppLogger != nil && appLogFile != nil {
		AppLogger.Error(message)
	}
}

// WithFields returns an entry for structured request logging.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	if AppLogger == nil {
		Discard()
	}
	return AppLogger.WithFields(logrus.Fields(fields))
}

func Fatal(format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	if ErrorLogger != nil {
		ErrorLogger.Fatal(message)
	}
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}

func CloseLogFiles() {
	if appLogFile != nil {
		AppLogger.Info("Closing app log file.")
		appLogFile.Close()
		appLogFile = nil
	}
	initialized = false
}
