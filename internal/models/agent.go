package models

import "time"

// AgentConfig describes one isolated publishing agent: its credentials, the
// feeds it pulls from, and its fetch/post cadence. Each agent gets its own
// storage namespace and scheduler.
type AgentConfig struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Active         bool     `yaml:"active" json:"active"`
	InstagramUser  string   `yaml:"instagram_user" json:"instagram_user"`
	InstagramPass  string   `yaml:"instagram_pass" json:"-"`
	GNewsAPIKey    string   `yaml:"gnews_api_key" json:"-"`
	NewsDataAPIKey string   `yaml:"newsdata_api_key" json:"-"`
	Providers      []string `yaml:"providers" json:"providers"`
	Categories     []string `yaml:"categories" json:"categories"`
	Languages      []string `yaml:"languages" json:"languages"`
	TargetLanguage string   `yaml:"target_language" json:"target_language"`

	FetchIntervalMinutes   int     `yaml:"fetch_interval_minutes" json:"fetch_interval_minutes"`
	PostIntervalMinutes    int     `yaml:"post_interval_minutes" json:"post_interval_minutes"`
	RandomizedPacing       bool    `yaml:"randomized_pacing" json:"randomized_pacing"`
	PostIntervalMinMinutes float64 `yaml:"post_interval_min_minutes" json:"post_interval_min_minutes"`
	PostIntervalMaxMinutes float64 `yaml:"post_interval_max_minutes" json:"post_interval_max_minutes"`

	OverlayOpacity float64 `yaml:"overlay_opacity" json:"overlay_opacity"`
}

// FetchInterval returns the fetch cadence, defaulting to 15 minutes.
func (a AgentConfig) FetchInterval() time.Duration {
	if a.FetchIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.FetchIntervalMinutes) * time.Minute
}

// PostInterval returns the fixed post cadence, defaulting to 30 minutes.
func (a AgentConfig) PostInterval() time.Duration {
	if a.PostIntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.PostIntervalMinutes) * time.Minute
}

// PostIntervalRange returns the [min, max] randomized pacing bounds,
// defaulting to 8-10 minutes when unset.
func (a AgentConfig) PostIntervalRange() (time.Duration, time.Duration) {
	min, max := a.PostIntervalMinMinutes, a.PostIntervalMaxMinutes
	if min <= 0 {
		min = 8
	}
	if max < min {
		max = min + 2
	}
	return time.Duration(min * float64(time.Minute)), time.Duration(max * float64(time.Minute))
}

// HasCredentials reports whether the agent can establish a publishing session.
func (a AgentConfig) HasCredentials() bool {
	return a.InstagramUser != "" && a.InstagramPass != ""
}

// TargetLang returns the publishing language, defaulting to Brazilian Portuguese.
func (a AgentConfig) TargetLang() string {
	if a.TargetLanguage == "" {
		return "pt"
	}
	return a.TargetLanguage
}
