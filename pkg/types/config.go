package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-reader/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// BackendConfig locates the entity API.
type BackendConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is the API base, e.g. "http://localhost:8080/api/v0".
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// MaxRetries bounds retries on HTTP 429 and 503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Token is sent as a bearer token. Usually loaded from .secrets/api-token.
	Token string `json:"-" yaml:"-" mapstructure:"token"`
}

// DBConfig holds settings for the SQLite entity database.
type DBConfig struct {
	// Path is the database file (default "data/entities.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// ReaderConfig enumerates the capabilities active in a reader session.
// It is evaluated once per state change into derived flags.
type ReaderConfig struct {
	// PropagateEntityEdits applies edits to all equivalent entities by default.
	PropagateEntityEdits bool `json:"propagate_entity_edits" yaml:"propagate_entity_edits" mapstructure:"propagate_entity_edits"`

	// Multiselect appends to the selection instead of replacing it.
	Multiselect bool `json:"multiselect" yaml:"multiselect" mapstructure:"multiselect"`

	// AnnotationInteraction allows annotations to be selected and cleared.
	AnnotationInteraction bool `json:"annotation_interaction" yaml:"annotation_interaction" mapstructure:"annotation_interaction"`

	// AnnotationsShowing controls whether entity annotations are drawn.
	AnnotationsShowing bool `json:"annotations_showing" yaml:"annotations_showing" mapstructure:"annotations_showing"`

	// EntityCreation enables the entity creation toolbar.
	EntityCreation bool `json:"entity_creation" yaml:"entity_creation" mapstructure:"entity_creation"`

	// EntityEditing enables the property editor in the drawer.
	EntityEditing bool `json:"entity_editing" yaml:"entity_editing" mapstructure:"entity_editing"`

	// CopySentenceOnClick copies a sentence's TeX when it is clicked.
	CopySentenceOnClick bool `json:"copy_sentence_on_click" yaml:"copy_sentence_on_click" mapstructure:"copy_sentence_on_click"`

	// FacetedHighlights enables the skimming highlight layer.
	FacetedHighlights bool `json:"faceted_highlights" yaml:"faceted_highlights" mapstructure:"faceted_highlights"`
}

// DefaultReaderConfig returns the settings a fresh reader starts with.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		PropagateEntityEdits:  true,
		AnnotationInteraction: true,
		AnnotationsShowing:    true,
		FacetedHighlights:     true,
	}
}

// HighlightConfig holds settings for the faceted highlight engine.
type HighlightConfig struct {
	// Corpus is the path of the highlight corpus file (JSON or YAML).
	Corpus string `json:"corpus" yaml:"corpus" mapstructure:"corpus"`

	// Quantity is the 0-100 quantity control value (default 50).
	Quantity int `json:"quantity" yaml:"quantity" mapstructure:"quantity"`

	// ScoreThreshold drops highlights scoring below it (default 0.9).
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold" mapstructure:"score_threshold"`

	// Colors maps facet labels to CSS colors.
	Colors map[Facet]string `json:"colors" yaml:"colors" mapstructure:"colors"`
}

// DefaultHighlightConfig returns the highlight settings a fresh reader starts with.
func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{
		Quantity:       50,
		ScoreThreshold: 0.9,
		Colors: map[Facet]string{
			FacetObjective: "#fbc02d",
			FacetNovelty:   "#ef9a9a",
			FacetMethod:    "#90caf9",
			FacetResult:    "#a5d6a7",
		},
	}
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Pretty enables human-readable console output.
	Pretty bool `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// Config groups every setting the CLI reads from viper.
type Config struct {
	Backend    BackendConfig   `json:"backend" yaml:"backend" mapstructure:"backend"`
	DB         DBConfig        `json:"db" yaml:"db" mapstructure:"db"`
	Server     ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Reader     ReaderConfig    `json:"reader" yaml:"reader" mapstructure:"reader"`
	Highlights HighlightConfig `json:"highlights" yaml:"highlights" mapstructure:"highlights"`
	Log        LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
