package wavio

// WAV header layout
const (
	wavHeaderSize      = 44 // Canonical header size in bytes
	wavRiffHeaderSize  = 36 // RIFF size = riffHeaderSize + dataSize
	wavPCMSubchunkSize = 16 // fmt subchunk size for PCM
	wavFileSizeOffset  = 4  // Byte offset of the RIFF size field
	wavDataSizeOffset  = 40 // Byte offset of the data size field
	uint32Size         = 4

	// FormatPCM is the WAV format tag for integer PCM.
	FormatPCM = 1
)

// Sample format constants
const (
	bitsPerByte      = 8
	bitsPerSample16  = 16
	bytesPerSample16 = 2
	millisPerSecond  = 1000
)

// I/O buffer sizes
const (
	sinkBufferSize = 64 * 1024
	readChunkSize  = 64 * 1024
)
