package transport

import (
	"errors"
	"io"
)

// LineHandler is the engine's HandleLine method, kept as a narrow
// interface so this package doesn't import internal/engine.
type LineHandler interface {
	HandleLine(line string) error
}

// Pump reads lines from c until the stream closes or handler returns an
// error, calling handler.HandleLine for each one. It returns nil on a
// clean close (io.EOF), otherwise the error that stopped the pump.
func Pump(c *Conn, handler LineHandler) error {
	for {
		line, err := c.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := handler.HandleLine(line); err != nil {
			return err
		}
	}
}
