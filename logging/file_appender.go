package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file appenders.
const (
	fileMaxSizeMB  = 64
	fileMaxBackups = 3
)

// FileAppender writes console formatted lines to a file that is rotated once it grows past
// fileMaxSizeMB. Old files are compressed.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender returns an appender writing to path. The file is created on the first write.
func NewFileAppender(path string) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(file), file: file}
}

// Close closes the current file.
func (appender *FileAppender) Close() error {
	return appender.file.Close()
}
