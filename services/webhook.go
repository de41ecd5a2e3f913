package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const signatureHeader = "aura-signature"

// Notifier publishes lifecycle events. key groups related events, such as all events for one user.
type Notifier interface {
	Notify(ctx context.Context, event models.WebhookEvent, key string, data any) error
	Close() error
}

// NewNotifier fans events out to every configured sink: a signed webhook, a Kafka topic, or neither.
func NewNotifier(cfg *config.Config, scheduler SchedulerService, log *zap.Logger) Notifier {
	var sinks []Notifier
	if cfg.WebhookURL != "" {
		sinks = append(sinks, NewWebhookService(cfg.WebhookURL, cfg.WebhookKey, scheduler, log))
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		sinks = append(sinks, NewKafkaNotifier(&kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}, log))
	}
	return multiNotifier{sinks: sinks, log: log}
}

type multiNotifier struct {
	sinks []Notifier
	log   *zap.Logger
}

func (m multiNotifier) Notify(ctx context.Context, event models.WebhookEvent, key string, data any) error {
	if len(m.sinks) == 0 {
		m.log.Debug("no event sink configured, dropping event", zap.String("event", event.String()))
		return nil
	}
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, event, key, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m multiNotifier) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type webhookService struct {
	service
	url        string
	key        string
	scheduler  SchedulerService
	httpClient *http.Client
	retryAfter time.Duration
}

func NewWebhookService(url, key string, scheduler SchedulerService, log *zap.Logger) Notifier {
	return &webhookService{
		service:    newService(nil, log),
		url:        url,
		key:        key,
		scheduler:  scheduler,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryAfter: 30 * time.Second,
	}
}

// sign produces the aura-signature header value over "<ts>.<body>".
func sign(key string, ts int64, body []byte) (string, error) {
	mac := hmac.New(sha256.New, []byte(key))
	if _, err := mac.Write([]byte(fmt.Sprintf("%d.%s", ts, body))); err != nil {
		return "", err
	}
	return fmt.Sprintf("ts=%d,sig=%s", ts, hex.EncodeToString(mac.Sum(nil))), nil
}

func (w *webhookService) doRequest(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}

	if w.key != "" {
		signature, err := sign(w.key, w.now().Unix(), body)
		if err != nil {
			return false, err
		}
		req.Header.Set(signatureHeader, signature)
	}

	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	res, err := w.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	resData, _ := io.ReadAll(res.Body)
	w.log.Debug("response from callback", zap.Int("status", res.StatusCode), zap.String("body", string(resData)))
	return res.StatusCode < 300, nil
}

func (w *webhookService) Notify(ctx context.Context, event models.WebhookEvent, _ string, data any) error {
	w.log.Info("dispatching event...", zap.String("event", event.String()))

	body, err := json.Marshal(&models.Webhook{
		Event:     event,
		Data:      data,
		CreatedAt: w.now(),
	})
	if err != nil {
		w.log.Error("encoding request body", zap.Error(err))
		return err
	}

	ok, err := w.doRequest(ctx, body)
	if err == nil && ok {
		return nil
	}
	if err != nil {
		w.log.Error("dispatching request", zap.String("event", event.String()), zap.Error(err))
	}

	if w.scheduler != nil {
		retryID := "webhook-retry-" + uuid.NewString()
		scheduleErr := w.scheduler.ScheduleAt(retryID, w.now().Add(w.retryAfter), func(ctx context.Context) error {
			ok, err := w.doRequest(ctx, body)
			if err == nil && !ok {
				err = fmt.Errorf("callback rejected %s", event)
			}
			return err
		})
		if scheduleErr != nil {
			w.log.Error("scheduling event retry", zap.Error(scheduleErr))
		}
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("callback rejected %s", event)
}

func (w *webhookService) Close() error {
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaNotifier struct {
	service
	writer messageWriter
}

func NewKafkaNotifier(writer messageWriter, log *zap.Logger) Notifier {
	return &kafkaNotifier{service: newService(nil, log), writer: writer}
}

func (k *kafkaNotifier) Notify(ctx context.Context, event models.WebhookEvent, key string, data any) error {
	now := k.now()
	value, err := json.Marshal(&models.Webhook{Event: event, Data: data, CreatedAt: now})
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    now,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event.String())}},
	})
	if err != nil {
		k.log.Error("publishing event", zap.String("event", event.String()), zap.Error(err))
	}
	return err
}

func (k *kafkaNotifier) Close() error {
	return k.writer.Close()
}
