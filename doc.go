// Package harness runs an offline acoustic echo cancellation evaluation.
//
// A run reads a reference (render) WAV and a capture (microphone) WAV of the
// same format, feeds them through an echo canceller one 10 ms frame at a
// time, and writes the cleaned capture plus a diagnostic recording of the
// canceller's linear filter stage at the split band rate.
//
// # Processing
//
// For every frame the reference is split into frequency bands and handed to
// the canceller for render analysis. The capture is analysed in the time
// domain, split, high-pass filtered on its lowest band and then cancelled in
// place before being merged back and written out. Only 16-bit PCM input is
// accepted, at a multiple of the 16 kHz band rate or below it (8 kHz runs as
// a single band at its own rate).
//
//	h, err := harness.New(harness.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := h.Process(harness.Files{
//	    Reference: "ref.wav",
//	    Capture:   "rec.wav",
//	    Output:    "out.wav",
//	})
//
// # KPI Check
//
// When the clean voice that was mixed into the capture is available, Evaluate
// compares power levels to decide whether the canceller kept the voice and
// removed the game sound:
//
//   - the output must be no more than 5 dB below the voice, measured over
//     both whole files
//   - the last second of the output must be at least 20 dB below the last
//     second of the capture
//
// The capture should therefore run at least one second past the end of the
// voice so that its tail holds echo only.
package harness
