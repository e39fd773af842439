package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean messages for users (stdout) with emojis
	Op   *OpLogger   // Detailed operational logs (stderr) without emojis

	log *UnifiedLogger
)

func init() {
	log = GetLogger()
	User = &UserLogger{logger: log.GetInternalLogger()}
	Op = &OpLogger{logger: log.GetInternalLogger()}
}

// Options controls how Setup configures the shared logger.
type Options struct {
	Verbose bool
	JSON    bool
	Quiet   bool

	// UserWriter and OpWriter default to stdout and stderr.
	UserWriter io.Writer
	OpWriter   io.Writer
}

type UserLogger struct {
	logger *logrus.Logger
}

type OpLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) entry(emoji string) *logrus.Entry {
	fields := logrus.Fields{"log_type": string(UserLog)}
	if emoji != "" {
		fields["emoji"] = emoji
	}
	return u.logger.WithFields(fields)
}

func (u *UserLogger) Info(msg string) { u.entry("").Info(msg) }

func (u *UserLogger) Infof(format string, args ...interface{}) { u.entry("").Infof(format, args...) }

func (u *UserLogger) Error(msg string) { u.entry("❌").Error(msg) }

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.entry("❌").Errorf(format, args...)
}

func (u *UserLogger) Warn(msg string) { u.entry("⚠️").Warn(msg) }

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.entry("⚠️").Warnf(format, args...)
}

// Starting announces the beginning of a run or a long operation.
func (u *UserLogger) Starting(msg string) { u.entry("🚀").Info(msg) }

func (u *UserLogger) Success(msg string) { u.entry("✅").Info(msg) }

func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.entry("✅").Infof(format, args...)
}

// Sectionf reports that an agent began drafting an article section.
func (u *UserLogger) Sectionf(format string, args ...interface{}) {
	u.entry("📝").Infof(format, args...)
}

// Skipf reports a task that did not run.
func (u *UserLogger) Skipf(format string, args ...interface{}) {
	u.entry("⏭️").Infof(format, args...)
}

// Cachedf reports a task output served from the result cache.
func (u *UserLogger) Cachedf(format string, args ...interface{}) {
	u.entry("💾").Infof(format, args...)
}

// Resumef reports output restored from a checkpoint.
func (u *UserLogger) Resumef(format string, args ...interface{}) {
	u.entry("🔁").Infof(format, args...)
}

func (o *OpLogger) entry() *logrus.Entry {
	return o.logger.WithField("log_type", string(OpLog))
}

func (o *OpLogger) Info(msg string) { o.entry().Info(msg) }

func (o *OpLogger) Infof(format string, args ...interface{}) { o.entry().Infof(format, args...) }

func (o *OpLogger) Error(msg string) { o.entry().Error(msg) }

func (o *OpLogger) Errorf(format string, args ...interface{}) { o.entry().Errorf(format, args...) }

func (o *OpLogger) Warn(msg string) { o.entry().Warn(msg) }

func (o *OpLogger) Warnf(format string, args ...interface{}) { o.entry().Warnf(format, args...) }

func (o *OpLogger) Debug(msg string) { o.entry().Debug(msg) }

func (o *OpLogger) Debugf(format string, args ...interface{}) { o.entry().Debugf(format, args...) }

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["log_type"] = string(OpLog)
	return o.logger.WithFields(fields)
}

// CLIFormatter provides clean output for CLI applications
type CLIFormatter struct {
	DisableTimestamp bool
	DisableLevel     bool
	DisableColors    bool
}

func (f *CLIFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if f.DisableLevel && f.DisableTimestamp {
		b.WriteString(entry.Message)
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}

	if !f.DisableLevel {
		levelColor, resetColor := "", ""
		if !f.DisableColors {
			switch entry.Level {
			case logrus.ErrorLevel:
				levelColor = "\033[31m"
			case logrus.WarnLevel:
				levelColor = "\033[33m"
			case logrus.InfoLevel:
				levelColor = "\033[36m"
			case logrus.DebugLevel:
				levelColor = "\033[37m"
			}
			resetColor = "\033[0m"
		}

		b.WriteString(levelColor)
		b.WriteString(strings.ToUpper(entry.Level.String()))
		b.WriteString(resetColor)
		b.WriteString(": ")
	}

	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "log_type" || k == "emoji" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, entry.Data[k]))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Setup configures the shared logger from CLI flags. LOG_MODE and LOG_FORMAT
// override the flags when set.
func Setup(verbose bool, jsonLogs bool, quiet bool) {
	SetupWithOptions(Options{Verbose: verbose, JSON: jsonLogs, Quiet: quiet})
}

// SetupWithOptions is Setup with explicit writers.
func SetupWithOptions(opts Options) {
	switch os.Getenv("LOG_MODE") {
	case "quiet":
		opts.Quiet, opts.Verbose = true, false
	case "verbose", "debug":
		opts.Quiet, opts.Verbose = false, true
	}

	switch os.Getenv("LOG_FORMAT") {
	case "json":
		opts.JSON = true
	case "text":
		opts.JSON = false
	}

	internalLogger := GetLogger().GetInternalLogger()

	level := logrus.InfoLevel
	if opts.Quiet {
		level = logrus.ErrorLevel
	} else if opts.Verbose {
		level = logrus.DebugLevel
	}

	internalLogger.Hooks = make(logrus.LevelHooks)
	internalLogger.SetOutput(io.Discard) // Output handled by hooks
	internalLogger.SetLevel(level)

	hook := NewOutputRouterHook()
	if opts.UserWriter != nil {
		hook.UserWriter = opts.UserWriter
	}
	if opts.OpWriter != nil {
		hook.OpWriter = opts.OpWriter
	}

	if opts.JSON {
		internalLogger.SetFormatter(&logrus.JSONFormatter{})
		hook.UserFormatter = &logrus.JSONFormatter{}
		hook.OpFormatter = &logrus.JSONFormatter{}
	} else {
		internalLogger.SetFormatter(&logrus.TextFormatter{})
		colors := isTerminal(hook.OpWriter)
		if opts.Verbose {
			hook.OpFormatter = &logrus.TextFormatter{
				FullTimestamp: true,
				ForceColors:   colors,
			}
		} else {
			hook.OpFormatter = &CLIFormatter{
				DisableTimestamp: true,
				DisableColors:    !colors,
			}
		}
	}

	internalLogger.AddHook(hook)

	User = &UserLogger{logger: internalLogger}
	Op = &OpLogger{logger: internalLogger}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
