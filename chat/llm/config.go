package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	openrouterx "github.com/romulo94/poc-healthcare-appointment-chatbot/pkg/openrouter"
)

// Capability distinguishes the two model roles the gateway runs.
type Capability string

const (
	CapabilityExtract Capability = "extract"
	CapabilityReply   Capability = "reply"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ExtractModel       string  `envconfig:"EXTRACT_MODEL" split_words:"true"`
	ReplyModel         string  `envconfig:"REPLY_MODEL" split_words:"true"`
	ExtractTemperature float32 `envconfig:"EXTRACT_TEMPERATURE" split_words:"true" default:"-1"`
	ReplyTemperature   float32 `envconfig:"REPLY_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the per-capability model and temperature overrides
// into a concrete client config.
func (c Config) OpenRouterFor(capability Capability) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch capability {
	case CapabilityExtract:
		if v := strings.TrimSpace(c.ExtractModel); v != "" {
			modelName = v
		}
		if c.ExtractTemperature >= 0 {
			temp = c.ExtractTemperature
		}
	case CapabilityReply:
		if v := strings.TrimSpace(c.ReplyModel); v != "" {
			modelName = v
		}
		if c.ReplyTemperature >= 0 {
			temp = c.ReplyTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
