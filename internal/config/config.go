// Package config provides YAML configuration loading with environment
// variable overrides for the inbox rotor.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultPollIntervalSeconds is how often the watched folder is checked.
const defaultPollIntervalSeconds = 300

// defaultFetchCount is how many unread messages one listing requests. High
// enough that no message is skipped between polls.
const defaultFetchCount = 250

// defaultMessageDelayMillis is the pause between Graph calls for consecutive
// messages within one tick.
const defaultMessageDelayMillis = 250

// Config holds the complete application configuration.
type Config struct {
	Graph      GraphConfig   `yaml:"graph"`
	Poll       PollConfig    `yaml:"poll"`
	Recipients []Recipient   `yaml:"recipients"`
	Reply      ReplyConfig   `yaml:"reply"`
	SES        SESConfig     `yaml:"ses"`
	Logging    LoggingConfig `yaml:"logging"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID      string `yaml:"tenant_id"`
	TokenEndpoint string `yaml:"token_endpoint"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	Mailbox       string `yaml:"mailbox"`
	Folder        string `yaml:"folder"`
}

// PollConfig holds the polling timing and listing parameters.
type PollConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	FetchCount      int `yaml:"fetch_count"`
	MessageDelayMs  int `yaml:"message_delay_ms"`
}

// Recipient is one forwarding target, in rotation order.
type Recipient struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// ReplyConfig holds the auto-reply configuration. An empty provider disables
// auto-replies.
type ReplyConfig struct {
	Provider string   `yaml:"provider"`
	Subject  string   `yaml:"subject"`
	Body     string   `yaml:"body"`
	Exclude  []string `yaml:"exclude"`
}

// SESConfig holds AWS SES configuration for the ses reply provider.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path as the base layer, overrides with
// environment variables, and validates the result. Recipients can only come
// from the file; there is no sane environment encoding for an ordered list.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Environment variables always override YAML values.
	cfg.applyEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// PollInterval returns the poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// MessageDelay returns the per-message delay as a time.Duration.
func (c *Config) MessageDelay() time.Duration {
	return time.Duration(c.Poll.MessageDelayMs) * time.Millisecond
}

// ReplyEnabled returns true if an auto-reply provider is configured.
func (c *Config) ReplyEnabled() bool {
	return c.Reply.Provider != ""
}

// Validate rejects configurations the process must not start with: missing
// credentials, an empty recipient list, or a broken reply setup.
func (c *Config) Validate() error {
	if c.Graph.TenantID == "" && c.Graph.TokenEndpoint == "" {
		return fmt.Errorf("graph.tenant_id or graph.token_endpoint is required")
	}
	if c.Graph.ClientID == "" {
		return fmt.Errorf("graph.client_id is required")
	}
	if c.Graph.ClientSecret == "" {
		return fmt.Errorf("graph.client_secret is required")
	}
	if c.Graph.Mailbox == "" {
		return fmt.Errorf("graph.mailbox is required")
	}

	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive")
	}

	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for i, r := range c.Recipients {
		if r.Email == "" {
			return fmt.Errorf("recipient #%d: email is required", i+1)
		}
	}

	switch c.Reply.Provider {
	case "", "graph", "stdout":
	case "ses":
		if c.SES.Region == "" || c.SES.Sender == "" {
			return fmt.Errorf("reply.provider is ses but ses.region and ses.sender are required")
		}
	default:
		return fmt.Errorf("unknown reply.provider %q", c.Reply.Provider)
	}

	return nil
}

// applyDefaults sets default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Graph.Folder = "Inbox"
	c.Poll.IntervalSeconds = defaultPollIntervalSeconds
	c.Poll.FetchCount = defaultFetchCount
	c.Poll.MessageDelayMs = defaultMessageDelayMillis
	c.Reply.Subject = "Your message has been received."
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_TOKEN_ENDPOINT"); v != "" {
		c.Graph.TokenEndpoint = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_MAILBOX"); v != "" {
		c.Graph.Mailbox = v
	}
	if v := os.Getenv("GRAPH_FOLDER"); v != "" {
		c.Graph.Folder = v
	}

	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Poll.IntervalSeconds = n
		}
	}
	if v := os.Getenv("POLL_FETCH_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Poll.FetchCount = n
		}
	}
	if v := os.Getenv("POLL_MESSAGE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Poll.MessageDelayMs = n
		}
	}

	if v := os.Getenv("REPLY_PROVIDER"); v != "" {
		c.Reply.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("REPLY_SUBJECT"); v != "" {
		c.Reply.Subject = v
	}
	if v := os.Getenv("REPLY_BODY"); v != "" {
		c.Reply.Body = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
