package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	// Fan-out and per-connection delivery tuning.
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=250ms"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL,default=60s"`
	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=15s"`

	DefaultChannels  string `env:"DEFAULT_CHANNELS,default=general,random"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,default=1024"`
	ArchivePageSize  int    `env:"ARCHIVE_PAGE_SIZE,default=50"`

	CharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AdminEmail        string        `env:"ADMIN_EMAIL"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
}

// ChannelNames splits the configured default channel list, dropping
// empty entries left by stray commas.
func (c Config) ChannelNames() []string {
	var names []string
	for _, name := range strings.Split(c.DefaultChannels, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CharacterRune enforces that the replacement is a single character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
