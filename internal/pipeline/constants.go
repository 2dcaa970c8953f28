package pipeline

// Frame timing defaults
const (
	// DefaultFrameMs is the processing granularity.
	DefaultFrameMs = 10

	// DefaultBandRate is the rate of every split band and of the linear
	// diagnostic output.
	DefaultBandRate = 16000
)
