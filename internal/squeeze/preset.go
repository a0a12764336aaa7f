package squeeze

import "strings"

// Preset is a Ghostscript PDFSETTINGS quality bundle.
type Preset string

const (
	// PresetScreen produces the smallest files, with images downsampled to 72 dpi.
	PresetScreen Preset = "screen"
	// PresetEbook balances size and quality at 150 dpi.
	PresetEbook Preset = "ebook"
	// PresetPrinter keeps print quality at 300 dpi.
	PresetPrinter Preset = "printer"

	// DefaultPreset is used when the caller does not choose one.
	DefaultPreset = PresetEbook
)

var presetFlags = map[Preset]string{
	PresetScreen:  "/screen",
	PresetEbook:   "/ebook",
	PresetPrinter: "/printer",
}

var presetDescriptions = map[Preset]string{
	PresetScreen:  "smallest output, 72 dpi images",
	PresetEbook:   "balanced size and quality, 150 dpi images (recommended)",
	PresetPrinter: "high quality, 300 dpi images",
}

// Presets returns the supported presets from most to least aggressive.
func Presets() []Preset {
	return []Preset{PresetScreen, PresetEbook, PresetPrinter}
}

func presetNames() []string {
	names := make([]string, 0, len(presetFlags))
	for _, p := range Presets() {
		names = append(names, string(p))
	}
	return names
}

// ParsePreset resolves a user supplied label, ignoring case and surrounding space.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presetFlags[p]; !ok {
		return "", &InvalidPresetError{Preset: s}
	}
	return p, nil
}

// Flag returns the value passed to -dPDFSETTINGS.
func (p Preset) Flag() (string, error) {
	flag, ok := presetFlags[p]
	if !ok {
		return "", &InvalidPresetError{Preset: string(p)}
	}
	return flag, nil
}

// Description returns a short human readable summary of the preset.
func (p Preset) Description() string {
	return presetDescriptions[p]
}

func (p Preset) String() string {
	return string(p)
}
