package notify

import (
	"io"
	"slices"
)

const (
	KindLog  = "log"
	KindSMTP = "smtp"
	KindAMQP = "amqp"
)

var (
	supportedKinds = []string{KindLog, KindSMTP, KindAMQP}
)

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type Config struct {
	Kind string      `yaml:"kind"`
	From string      `yaml:"from"`
	SMTP *SMTPConfig `yaml:"smtp"`
	AMQP *AMQPConfig `yaml:"amqp"`
}

func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindLog
	}
	if c.SMTP != nil && c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.AMQP != nil && c.AMQP.Queue == "" {
		c.AMQP.Queue = "emails"
	}
}

func (c *Config) Validate() {
	if !slices.Contains(supportedKinds, c.Kind) {
		logger.Fatal().Msgf("NotifierConfig: Kind %s is not supported", c.Kind)
	}
	if c.From == "" {
		logger.Fatal().Msg("NotifierConfig: From is missing")
	}

	switch c.Kind {
	case KindSMTP:
		if c.SMTP == nil || c.SMTP.Host == "" {
			logger.Fatal().Msg("NotifierConfig: SMTP Host is missing")
		}
	case KindAMQP:
		if c.AMQP == nil || c.AMQP.URL == "" {
			logger.Fatal().Msg("NotifierConfig: AMQP URL is missing")
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured sender. The returned closer releases transport
// connections.
func New(c *Config) (Sender, io.Closer, error) {
	switch c.Kind {
	case KindSMTP:
		s, err := NewSMTPSender(c.SMTP, c.From)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case KindAMQP:
		s, err := DialAMQP(c.AMQP, c.From)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return NewLogSender(c.From), nopCloser{}, nil
	}
}
