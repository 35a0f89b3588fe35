package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"outreach/pkg/mq"
)

type Config struct {
	MetadataDB MySQL         `json:"metadata_db"`
	SearchDB   Elasticsearch `json:"search_db"`
	Brevo      Brevo         `json:"brevo"`
	Kafka      Kafka         `json:"kafka"`
	Outreach   Outreach      `json:"outreach"`
}

type MySQL struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

func (m *MySQL) ToDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", m.Username, m.Password, m.Host, m.Port, m.Database)
}

type Elasticsearch struct {
	Addresses []string `json:"addresses"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Index     string   `json:"index"`
}

type Brevo struct {
	APIKey      string `json:"api_key"`
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name"`
}

type Kafka struct {
	Producer mq.ProducerConfig `json:"producer"`
	Consumer mq.ConsumerConfig `json:"consumer"`
}

// Outreach holds the engine knobs. Zero values fall back to the defaults
// in const.go.
type Outreach struct {
	BulkDeleteCap      int    `json:"bulk_delete_cap"`
	BulkConcurrency    int    `json:"bulk_concurrency"`
	AdvanceConcurrency int    `json:"advance_concurrency"`
	SendTimeoutSeconds int    `json:"send_timeout_seconds"`
	WebhookKeyHash     string `json:"webhook_key_hash"`
}

func (o *Outreach) GetBulkDeleteCap() int {
	if o.BulkDeleteCap > 0 {
		return o.BulkDeleteCap
	}
	return DefaultBulkDeleteCap
}

func (o *Outreach) GetBulkConcurrency() int {
	if o.BulkConcurrency > 0 {
		return o.BulkConcurrency
	}
	return DefaultBulkConcurrency
}

func (o *Outreach) GetAdvanceConcurrency() int {
	if o.AdvanceConcurrency > 0 {
		return o.AdvanceConcurrency
	}
	return DefaultAdvanceConcurrency
}

func (o *Outreach) GetSendTimeoutSeconds() int {
	if o.SendTimeoutSeconds > 0 {
		return o.SendTimeoutSeconds
	}
	return DefaultSendTimeoutSeconds
}

func NewConfig() *Config {
	return &Config{
		MetadataDB: MySQL{
			Username: "",
			Password: "",
			Host:     "127.0.0.1",
			Port:     3306,
			Database: "outreach_db",
		},
		SearchDB: Elasticsearch{
			Addresses: []string{"http://127.0.0.1:9200"},
			Index:     "prospects",
		},
		Brevo: Brevo{
			APIKey:      "",
			SenderEmail: "",
			SenderName:  "",
		},
		Kafka: Kafka{
			Producer: mq.ProducerConfig{
				Brokers: []string{"127.0.0.1:9092"},
				Topics: map[uint32]string{
					uint32(mq.PayloadStepSent): "outreach_step_sent",
				},
			},
			Consumer: mq.ConsumerConfig{
				Brokers:       []string{"127.0.0.1:9092"},
				Topic:         "outreach_engagement",
				ConsumerGroup: "outreach_engine",
			},
		},
		Outreach: Outreach{},
	}
}

func (c *Config) Load(ctx context.Context, path string) error {
	if path == "" {
		log.Ctx(ctx).Warn().Msgf("empty config file")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Ctx(ctx).Warn().Msgf("config file does not exist, file path: %s", path)
			return nil
		}
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			log.Ctx(ctx).Error().Msgf("config file close failed, file path: %s", path)
		}
	}(f)

	p := json.NewDecoder(f)
	if err := p.Decode(&c); err != nil {
		return err
	}

	return nil
}
