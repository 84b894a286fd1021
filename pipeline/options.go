package pipeline

import (
	"time"

	"github.com/LaChance971123/NewAutoContent/config"
)

// Options is the invocation surface consumed by CLI/GUI front-ends. Unset
// fields fall back to the loaded configuration; Watermark and DeveloperMode
// are pointers so an omitted JSON field inherits the configured default
// instead of reading as false.
type Options struct {
	Style           string `json:"style"`
	BackgroundStyle string `json:"backgroundStyle"`
	Resolution      string `json:"resolution"`
	Watermark       *bool  `json:"watermark,omitempty"`
	DryRun          bool   `json:"dryRun"`
	Debug           bool   `json:"debug"`
	DeveloperMode   *bool  `json:"developerMode,omitempty"`
	// StepTimeoutSeconds is the wire form of the per-step timeout.
	StepTimeoutSeconds int `json:"stepTimeoutSeconds,omitempty"`
	// StepTimeout takes precedence over StepTimeoutSeconds when set.
	StepTimeout time.Duration `json:"-"`
}

// WatermarkEnabled reports the resolved watermark choice.
func (o Options) WatermarkEnabled() bool { return o.Watermark != nil && *o.Watermark }

// DeveloperModeEnabled reports the resolved developer-mode choice.
func (o Options) DeveloperModeEnabled() bool { return o.DeveloperMode != nil && *o.DeveloperMode }

// OptionsFromConfig derives default run options from configuration.
func OptionsFromConfig(cfg config.Config) Options {
	watermark := cfg.WatermarkEnabled
	developerMode := cfg.DeveloperMode
	return Options{
		Style:           cfg.SubtitleStyle,
		BackgroundStyle: cfg.BackgroundStyle,
		Resolution:      cfg.Resolution,
		Watermark:       &watermark,
		StepTimeout:     cfg.StepTimeout(),
		DeveloperMode:   &developerMode,
	}
}

// merged fills unset option fields from the configuration.
func (o Options) merged(cfg config.Config) Options {
	if o.Style == "" {
		o.Style = cfg.SubtitleStyle
	}
	if o.BackgroundStyle == "" {
		o.BackgroundStyle = cfg.BackgroundStyle
	}
	if o.Resolution == "" {
		o.Resolution = cfg.Resolution
	}
	if o.Watermark == nil {
		watermark := cfg.WatermarkEnabled
		o.Watermark = &watermark
	}
	if o.DeveloperMode == nil {
		developerMode := cfg.DeveloperMode
		o.DeveloperMode = &developerMode
	}
	if o.StepTimeout <= 0 {
		if o.StepTimeoutSeconds > 0 {
			o.StepTimeout = time.Duration(o.StepTimeoutSeconds) * time.Second
		} else {
			o.StepTimeout = cfg.StepTimeout()
		}
	}
	return o
}
