package eventchannel

import "context"

const (
	logMsgEventPublished = "event published"
	logAttrEvent         = "event"
)

// LogChannel writes every published event to a logger at info level.
type LogChannel struct {
	logger Logger
}

// NewLogChannel creates a LogChannel writing to logger.
func NewLogChannel(logger Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Publish logs the event.
func (c *LogChannel) Publish(_ context.Context, event map[string]any) error {
	c.logger.Info(logMsgEventPublished, logAttrEvent, event)
	return nil
}

// Close does nothing.
func (c *LogChannel) Close() error {
	return nil
}
