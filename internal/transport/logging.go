package transport

import (
	"encoding/json"

	"enginesound/internal/log"
)

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct {
	logger *log.Logger
}

func NewLoggingTransport() *LoggingTransport {
	l := log.New("transport")
	l.Infof("Using LoggingTransport")
	return &LoggingTransport{logger: l}
}

// Send logs data when debug logging is enabled. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		lt.logger.Debugf("Received (%T): %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	lt.logger.Debugf("Received (%T): %s", data, jsonData)
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
