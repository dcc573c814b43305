package config

import (
	"time"

	"github.com/pitabwire/frame/config"

	"github.com/enhasa/enhasa/internal/narration/callback"
	"github.com/enhasa/enhasa/internal/speech/engine"
)

// Archive backends for the durable cache tier.
const (
	ArchiveNone      = "none"
	ArchiveDatastore = "datastore"
	ArchiveSQLite    = "sqlite"
)

// NarrationConfig holds configuration for the narration service.
type NarrationConfig struct {
	config.ConfigurationDefault

	// ElevenLabs
	ElevenLabsAPIKey          string  `envDefault:""                               env:"ELEVENLABS_API_KEY"`
	EnableElevenLabs          bool    `envDefault:"false"                          env:"ENABLE_ELEVENLABS"`
	ElevenLabsBaseURL         string  `envDefault:"https://api.elevenlabs.io/v1"   env:"ELEVENLABS_BASE_URL"`
	ElevenLabsModel           string  `envDefault:"eleven_multilingual_v2"         env:"ELEVENLABS_MODEL"`
	ElevenLabsStability       float64 `envDefault:"0.5"                            env:"ELEVENLABS_STABILITY"`
	ElevenLabsSimilarityBoost float64 `envDefault:"0.75"                           env:"ELEVENLABS_SIMILARITY_BOOST"`

	// PlayHT
	PlayHTSecretKey             string  `envDefault:""                           env:"PLAYHT_SECRET_KEY"`
	PlayHTUserID                string  `envDefault:""                           env:"PLAYHT_USER_ID"`
	EnablePlayHT                bool    `envDefault:"true"                       env:"ENABLE_PLAYHT"`
	PlayHTBaseURL               string  `envDefault:"https://api.play.ht/api/v2" env:"PLAYHT_BASE_URL"`
	PlayHTQuality               string  `envDefault:"premium"                    env:"PLAYHT_QUALITY"`
	PlayHTOutputFormat          string  `envDefault:"mp3"                        env:"PLAYHT_OUTPUT_FORMAT"`
	PlayHTMaxPollAttempts       int     `envDefault:"30"                         env:"PLAYHT_MAX_POLL_ATTEMPTS"`
	PlayHTPollInitialMs         int     `envDefault:"1000"                       env:"PLAYHT_POLL_INITIAL_MS"`
	PlayHTPollMultiplier        float64 `envDefault:"1.5"                        env:"PLAYHT_POLL_MULTIPLIER"`
	PlayHTPollMaxMs             int     `envDefault:"5000"                       env:"PLAYHT_POLL_MAX_MS"`
	PlayHTAllowPrivateDownloads bool    `envDefault:"false"                      env:"PLAYHT_ALLOW_PRIVATE_DOWNLOADS"`

	// Orchestration
	TTSHTTPTimeoutSec       int    `envDefault:"60"   env:"TTS_HTTP_TIMEOUT_SEC"`
	DefaultTTSProvider      string `envDefault:"auto" env:"DEFAULT_TTS_PROVIDER"`
	BreakerFailureThreshold int    `envDefault:"5"    env:"BREAKER_FAILURE_THRESHOLD"`
	BreakerResetTimeoutSec  int    `envDefault:"60"   env:"BREAKER_RESET_TIMEOUT_SEC"`
	MaxTextRunes            int    `envDefault:"100000" env:"MAX_TEXT_CHARACTERS"`

	// Storage
	CacheMaxEntries   int    `envDefault:"256"                 env:"CACHE_MAX_ENTRIES"`
	AudioBucketURL    string `envDefault:"mem://"              env:"AUDIO_BUCKET_URL"`
	VoiceCatalogPath  string `envDefault:""                    env:"VOICE_CATALOG_PATH"`
	ArchiveBackend    string `envDefault:"none"                env:"ARCHIVE_BACKEND"`
	ArchiveSQLitePath string `envDefault:"./data/archive.db"   env:"ARCHIVE_SQLITE_PATH"`

	// Pregeneration
	PregenerateQueueName string `envDefault:"narration.pregenerate" env:"PREGENERATE_QUEUE_NAME"`
	PregenerateQueueURL  string `envDefault:""                      env:"PREGENERATE_QUEUE_URL"`

	// Completion callbacks
	CallbackSigningSecret    string `envDefault:""      env:"CALLBACK_SIGNING_SECRET"`
	CallbackMaxAttempts      int    `envDefault:"5"     env:"CALLBACK_MAX_ATTEMPTS"`
	CallbackTimeoutSec       int    `envDefault:"10"    env:"CALLBACK_TIMEOUT_SEC"`
	CallbackBackoffInitialMs int    `envDefault:"1000"  env:"CALLBACK_BACKOFF_INITIAL_MS"`
	CallbackBackoffMaxSec    int    `envDefault:"300"   env:"CALLBACK_BACKOFF_MAX_SEC"`
	CallbackAllowPrivate     bool   `envDefault:"false" env:"CALLBACK_ALLOW_PRIVATE"`
}

// SpeechSettings resolves the provider settings handed to every factory.
func (c *NarrationConfig) SpeechSettings() engine.Settings {
	return engine.Settings{
		ElevenLabs: engine.ElevenLabsSettings{
			APIKey:          c.ElevenLabsAPIKey,
			Enabled:         c.EnableElevenLabs,
			BaseURL:         c.ElevenLabsBaseURL,
			ModelID:         c.ElevenLabsModel,
			Stability:       c.ElevenLabsStability,
			SimilarityBoost: c.ElevenLabsSimilarityBoost,
		},
		PlayHT: engine.PlayHTSettings{
			SecretKey:             c.PlayHTSecretKey,
			UserID:                c.PlayHTUserID,
			Enabled:               c.EnablePlayHT,
			BaseURL:               c.PlayHTBaseURL,
			Quality:               c.PlayHTQuality,
			OutputFormat:          c.PlayHTOutputFormat,
			MaxPollAttempts:       c.PlayHTMaxPollAttempts,
			PollInitialInterval:   millis(c.PlayHTPollInitialMs),
			PollMultiplier:        c.PlayHTPollMultiplier,
			PollMaxInterval:       millis(c.PlayHTPollMaxMs),
			AllowPrivateDownloads: c.PlayHTAllowPrivateDownloads,
		},
		HTTPTimeout: seconds(c.TTSHTTPTimeoutSec),
	}
}

// CallbackConfig resolves the completion callback settings.
func (c *NarrationConfig) CallbackConfig() callback.Config {
	return callback.Config{
		Secret:         c.CallbackSigningSecret,
		MaxAttempts:    c.CallbackMaxAttempts,
		Timeout:        seconds(c.CallbackTimeoutSec),
		BackoffInitial: millis(c.CallbackBackoffInitialMs),
		BackoffMax:     seconds(c.CallbackBackoffMaxSec),
		AllowPrivate:   c.CallbackAllowPrivate,
	}
}

// BreakerResetTimeout returns the open-state duration of a provider breaker.
func (c *NarrationConfig) BreakerResetTimeout() time.Duration {
	return seconds(c.BreakerResetTimeoutSec)
}

// PregenerationQueued reports whether pregeneration jobs go through a queue
// instead of the in-process worker pool.
func (c *NarrationConfig) PregenerationQueued() bool {
	return c.PregenerateQueueURL != "" && c.PregenerateQueueName != ""
}

func millis(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
