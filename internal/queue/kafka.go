package queue

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"threadcast/internal/domain"
)

type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return NewKafkaWithProducer(producer, topic), nil
}

func NewKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{
		producer: producer,
		topic:    topic,
	}
}

var _ Publisher = (*Kafka)(nil)

// Publish keys jobs by platform so that threads for one platform are
// consumed in the order they were queued.
func (k *Kafka) Publish(ctx context.Context, job domain.ThreadJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(job.Platform),
		Value: sarama.ByteEncoder(data),
	})

	return err
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}

type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler func(ctx context.Context, job domain.ThreadJob) error
	logger  zerolog.Logger
}

func NewKafkaConsumer(brokers []string, groupID, topic string, logger zerolog.Logger) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &KafkaConsumer{
		group:  group,
		topic:  topic,
		logger: logger,
	}, nil
}

var _ Consumer = (*KafkaConsumer)(nil)

func (c *KafkaConsumer) Consume(ctx context.Context, handler func(ctx context.Context, job domain.ThreadJob) error) error {
	c.handler = handler

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.group.Consume(ctx, []string{c.topic}, c); err != nil {
				return err
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.group.Close()
}

func (c *KafkaConsumer) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (c *KafkaConsumer) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim handles one job at a time. Messages that fail to decode or
// that the handler rejects are not marked, but offsets are committed per
// partition, so marking a later message moves the group past them. They
// are only redelivered if the session ends before that happens.
func (c *KafkaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		log := c.logger.With().Int32("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

		var job domain.ThreadJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			log.Error().Err(err).Msg("drop undecodable job")
			continue
		}

		if err := c.handler(session.Context(), job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("job not acknowledged")
			continue
		}

		session.MarkMessage(msg, "")
	}
	return nil
}
