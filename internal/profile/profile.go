package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the chat client.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// APIBaseURL is the base URL of the marketplace backend
	APIBaseURL string
	// SocketURL is the websocket endpoint for the realtime channel
	SocketURL string
	// Data is the data directory for device-scoped state
	Data string
	// DSN points to where the device store keeps its data
	DSN string
	// Driver is the device store driver (sqlite or memory)
	Driver string
	// Version is the current version of the client
	Version string

	// Role selects the dialogue role: consumer, provider or enrollment
	Role string

	// MaxAttachments bounds the staged media list
	MaxAttachments int

	// Voice Configuration
	VoiceEnabled  bool   // PROXIE_VOICE_ENABLED
	VoiceAPIKey   string // PROXIE_VOICE_API_KEY
	VoiceBaseURL  string // PROXIE_VOICE_BASE_URL (default: https://api.openai.com/v1)
	VoiceSTTModel string // PROXIE_VOICE_STT_MODEL (default: whisper-1)
	VoiceTTSModel string // PROXIE_VOICE_TTS_MODEL (default: tts-1)
	VoiceTTSVoice string // PROXIE_VOICE_TTS_VOICE (default: alloy)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsVoiceEnabled returns true if voice is enabled and an API key is configured.
func (p *Profile) IsVoiceEnabled() bool {
	return p.VoiceEnabled && p.VoiceAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from PROXIE_* environment variables.
func (p *Profile) FromEnv() {
	p.APIBaseURL = getEnvOrDefault("PROXIE_API_URL", "http://localhost:8000")
	p.SocketURL = getEnvOrDefault("PROXIE_SOCKET_URL", "ws://localhost:8000/ws")
	p.Driver = getEnvOrDefault("PROXIE_DRIVER", "sqlite")
	p.Role = getEnvOrDefault("PROXIE_ROLE", "consumer")

	if n, err := strconv.Atoi(os.Getenv("PROXIE_MAX_ATTACHMENTS")); err == nil && n > 0 {
		p.MaxAttachments = n
	} else if p.MaxAttachments == 0 {
		p.MaxAttachments = 5
	}

	p.VoiceEnabled = os.Getenv("PROXIE_VOICE_ENABLED") == "true"
	p.VoiceAPIKey = os.Getenv("PROXIE_VOICE_API_KEY")
	p.VoiceBaseURL = getEnvOrDefault("PROXIE_VOICE_BASE_URL", "https://api.openai.com/v1")
	p.VoiceSTTModel = getEnvOrDefault("PROXIE_VOICE_STT_MODEL", "whisper-1")
	p.VoiceTTSModel = getEnvOrDefault("PROXIE_VOICE_TTS_MODEL", "tts-1")
	p.VoiceTTSVoice = getEnvOrDefault("PROXIE_VOICE_TTS_VOICE", "alloy")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Role != "consumer" && p.Role != "provider" && p.Role != "enrollment" {
		return errors.Errorf("unknown role %q: only 'consumer', 'provider' and 'enrollment' are supported", p.Role)
	}

	if p.Driver == "memory" {
		return nil
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("proxie_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
