package midi

import "go.uber.org/zap"

var decoderLog = zap.NewNop()
var sessionLog = zap.NewNop()

// EnableDebugLogging routes the package's debug output to l. Decoders and
// sessions created afterwards without WithLogger use it.
func EnableDebugLogging(l *zap.Logger) {
	decoderLog = l.Named("decoder")
	sessionLog = l.Named("session")
}
