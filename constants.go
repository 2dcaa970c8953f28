package harness

// Configuration defaults
const (
	DefaultFrameDurationMs    = 10
	DefaultLinearOutputRateHz = 16000
	DefaultLogLevel           = "info"
	DefaultShortFilePolicy    = "clamp"
	DefaultHighPassCutoffHz   = 80.0
)

// DefaultLinearFileName is the linear output written next to out.wav when no
// path is given.
const DefaultLinearFileName = "linear.wav"

const (
	bitsPerSample16 = 16
	millisPerSecond = 1000
)
