package journal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

var _ Sink = (*KafkaSink)(nil)

const kafkaMaxAttempts = 16

// KafkaAuthCredentials is a username:password pair for SASL-plain.
type KafkaAuthCredentials struct {
	Username string
	Password string
}

// ParseKafkaAuthCredentials parses "username:password".
func ParseKafkaAuthCredentials(creds string) (*KafkaAuthCredentials, error) {
	parts := strings.SplitN(creds, ":", 2)
	if len(parts) == 1 {
		return nil, fmt.Errorf("failed to parse credentials")
	}
	return &KafkaAuthCredentials{
		Username: parts[0],
		Password: parts[1],
	}, nil
}

func (c *KafkaAuthCredentials) Mechanism() *plain.Mechanism {
	return &plain.Mechanism{
		Username: c.Username,
		Password: c.Password,
	}
}

// GetTLSConfig builds a TLS config trusting the CA at trustStorePath.
func GetTLSConfig(trustStorePath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(trustStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read trustStorePath: %w", err)
	}

	caCertPool := x509.NewCertPool()
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// KafkaSink publishes scan records to a Kafka topic.
type KafkaSink struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaSink(
	brokerEndpoint,
	topic string,
	tlsConfig *tls.Config,
	producerCreds *plain.Mechanism,
	timeout time.Duration,
) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerEndpoint),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  kafkaMaxAttempts,
		BatchTimeout: timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		Transport: &kafka.Transport{
			Dial: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			TLS:  tlsConfig,
			SASL: producerCreds,
		},
	}

	return &KafkaSink{
		writer:  writer,
		timeout: timeout,
	}
}

func (ks *KafkaSink) Publish(records ...Record) error {
	kafkaMessages := make([]kafka.Message, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal a record %v: %w", r, err)
		}
		kafkaMessages[i] = kafka.Message{Key: []byte(r.ID), Value: data}
	}

	if err := ks.writer.WriteMessages(context.Background(), kafkaMessages...); err != nil {
		return fmt.Errorf("failed to WriteMessages: %w", err)
	}

	return nil
}

func (ks *KafkaSink) Close() error {
	if ks.writer != nil {
		if err := ks.writer.Close(); err != nil {
			return fmt.Errorf("failed to Close writer: %w", err)
		}
	}
	return nil
}
