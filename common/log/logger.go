package log

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	tmlog "github.com/tendermint/tendermint/libs/log"
)

var logger tmlog.Logger

func init() {
	logger = NewConsoleLogger()
}

func InitLogger(l tmlog.Logger) {
	logger = l
}

func NewConsoleLogger() tmlog.Logger {
	return tmlog.NewTMLogger(tmlog.NewSyncWriter(os.Stdout))
}

// NewFileLogger writes to filePath with size-based rotation.
func NewFileLogger(filePath string, maxSizeMB int, maxBackups int) tmlog.Logger {
	var w io.Writer = &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return tmlog.NewTMLogger(tmlog.NewSyncWriter(w))
}

func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

func With(keyvals ...interface{}) tmlog.Logger {
	return logger.With(keyvals...)
}
