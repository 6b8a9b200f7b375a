package jsbundle

import "log/slog"

// slogPrinter routes the bundle's console output to a structured logger.
type slogPrinter struct {
	logger *slog.Logger
}

func (p slogPrinter) Log(s string) {
	p.logger.Info(s, "source", "bundle")
}

func (p slogPrinter) Warn(s string) {
	p.logger.Warn(s, "source", "bundle")
}

func (p slogPrinter) Error(s string) {
	p.logger.Error(s, "source", "bundle")
}
