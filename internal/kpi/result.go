package kpi

import "fmt"

// Result is the outcome of a KPI check. Both criteria are always evaluated.
type Result struct {
	GameSound     Measurement
	ResidualNoise Measurement
	Voice         Measurement
	Out           Measurement
	Thresholds    Thresholds

	VoicePreserved      bool
	GameSoundSuppressed bool
	Failures            []string
}

// Check compares the four measurements against th.
// Boundaries are inclusive: an output exactly MaxVoiceAttenuationDB below the
// voice, or a residual exactly MinGameSoundAttenuationDB below the game
// sound, passes.
func Check(game, residual, voice, out Measurement, th Thresholds) *Result {
	r := &Result{
		GameSound:     game,
		ResidualNoise: residual,
		Voice:         voice,
		Out:           out,
		Thresholds:    th,
	}

	for _, m := range []Measurement{game, residual, voice, out} {
		if !m.Valid() {
			r.Failures = append(r.Failures, fmt.Sprintf("%s measurement invalid: %v", m.Label, m.Err))
		}
	}

	if voice.Valid() && out.Valid() {
		r.VoicePreserved = out.DB >= voice.DB-th.MaxVoiceAttenuationDB
		if !r.VoicePreserved {
			r.Failures = append(r.Failures, fmt.Sprintf(
				"voice attenuated: output %.2f dB < voice %.2f dB - %.1f dB",
				out.DB, voice.DB, th.MaxVoiceAttenuationDB))
		}
	}

	if game.Valid() && residual.Valid() {
		r.GameSoundSuppressed = residual.DB <= game.DB-th.MinGameSoundAttenuationDB
		if !r.GameSoundSuppressed {
			r.Failures = append(r.Failures, fmt.Sprintf(
				"game sound not suppressed: residual %.2f dB > game sound %.2f dB - %.1f dB",
				residual.DB, game.DB, th.MinGameSoundAttenuationDB))
		}
	}
	return r
}

// Valid reports whether every measurement could be taken.
func (r *Result) Valid() bool {
	return r.GameSound.Valid() && r.ResidualNoise.Valid() && r.Voice.Valid() && r.Out.Valid()
}

// Passed reports whether both criteria hold on valid measurements.
func (r *Result) Passed() bool {
	return r.Valid() && r.VoicePreserved && r.GameSoundSuppressed
}

// Measurements returns the four readings in report order.
func (r *Result) Measurements() []Measurement {
	return []Measurement{r.GameSound, r.ResidualNoise, r.Voice, r.Out}
}
