package deps

import "cratedig/internal/config"

// ForConfig lists the external binaries the configured pipeline shells out to.
// Fingerprinting needs fpcalc only when an AcoustID key is set, so the
// requirement is marked optional in that case rather than dropped. The ffmpeg
// binary backs the duplicate check during apply.
func ForConfig(cfg *config.Config) []Requirement {
	fpcalc := Requirement{
		Name:        "fpcalc",
		Command:     cfg.AcoustID.FpcalcBinary,
		Description: "Chromaprint fingerprinter used for AcoustID lookups",
		Optional:    cfg.AcoustID.APIKey == "",
	}
	if fpcalc.Command == "" {
		fpcalc.Command = "fpcalc"
	}

	ffmpeg := Requirement{
		Name:        "ffmpeg",
		Command:     cfg.Apply.FFmpegBinary,
		Description: "Decoded-audio hashing for duplicate detection",
	}
	if ffmpeg.Command == "" {
		ffmpeg.Command = "ffmpeg"
	}

	return []Requirement{fpcalc, ffmpeg}
}
