// Package logging builds the zap logger shared by every sdqprobe component.
package logging
