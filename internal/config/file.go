package config

import (
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SourceConfig holds the settings for one source.
type SourceConfig struct {
	// Enabled turns the source off when false. Unset means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Cookie is sent with every request to the source.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Domain replaces the canonical domain of the source.
	Domain string `yaml:"domain,omitempty"`

	// UserAgent replaces the default User-Agent for this source.
	UserAgent string `yaml:"userAgent,omitempty"`

	// ClientID is the API client ID for sources that need one.
	ClientID string `yaml:"clientId,omitempty"`

	// Pages overrides the page budget for this source.
	Pages int `yaml:"pages,omitempty"`

	// Results overrides the result budget for this source.
	Results int `yaml:"results,omitempty"`
}

// IsEnabled reports whether the source should run.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ManifestConfig says where to refresh the domain alias manifest from.
type ManifestConfig struct {
	// URL serves the signed manifest.
	URL string `yaml:"url,omitempty"`

	// PublicKey is the base64 encoded Ed25519 key the manifest is signed
	// with.
	PublicKey string `yaml:"publicKey,omitempty"`

	// File is a local YAML or JSON manifest, watched for changes.
	File string `yaml:"file,omitempty"`
}

// Key decodes PublicKey.
func (m ManifestConfig) Key() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(m.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(key))
	}
	return key, nil
}

// File represents the structure of the .fedsearch configuration file.
type File struct {
	// Defaults apply to every source unless overridden.
	Defaults SourceConfig `yaml:"defaults,omitempty"`

	// Sources maps source names to their settings.
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Manifest configures the domain alias manifest.
	Manifest ManifestConfig `yaml:"manifest,omitempty"`

	// DownloadDir replaces the default download directory.
	DownloadDir string `yaml:"downloadDir,omitempty"`
}

// SourceConfig returns the settings for a source, merged over the
// defaults. Names are matched case-insensitively.
func (cf *File) SourceConfig(name string) SourceConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	sc, ok := cf.Sources[name]
	if !ok {
		for k, v := range cf.Sources {
			if strings.EqualFold(k, name) {
				sc, ok = v, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if sc.Enabled != nil {
		result.Enabled = sc.Enabled
	}
	if sc.Cookie != "" {
		result.Cookie = sc.Cookie
	}
	if sc.Domain != "" {
		result.Domain = sc.Domain
	}
	if sc.UserAgent != "" {
		result.UserAgent = sc.UserAgent
	}
	if sc.ClientID != "" {
		result.ClientID = sc.ClientID
	}
	if sc.Pages != 0 {
		result.Pages = sc.Pages
	}
	if sc.Results != 0 {
		result.Results = sc.Results
	}
	if len(sc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(sc.Headers))
		}
		maps.Copy(result.Headers, sc.Headers)
	}
	return result
}

// Disabled returns the names of sources switched off in the file, sorted.
func (cf *File) Disabled() []string {
	var out []string
	for name := range cf.Sources {
		if !cf.SourceConfig(name).IsEnabled() {
			out = append(out, strings.ToLower(name))
		}
	}
	slices.Sort(out)
	return out
}
