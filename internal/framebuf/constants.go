package framebuf

const (
	bytesPerSample  = 2 // 16-bit PCM
	monoChannels    = 1
	millisPerSecond = 1000

	// maxBands bounds the block transform size; 48 kHz at a 16 kHz band
	// rate needs 3.
	maxBands = 8
)
