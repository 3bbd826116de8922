// Package ingest принимает телеметрию выездных единиц из MQTT
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service"
)

const (
	defaultIngestTimeout = 2 * time.Second
	subscribeQoS         = 1
)

// locationMessage - тело сообщения units/<unit_id>/location
type locationMessage struct {
	UnitID     string    `json:"unit_id,omitempty"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}

// MQTTConfig - параметры подключения к брокеру
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
}

// NewMQTTClient создает клиента paho с автоматическим переподключением
func NewMQTTClient(cfg MQTTConfig) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second).
		SetOrderMatters(false)
	return mqtt.NewClient(opts)
}

// LocationSubscriber передаёт точки из MQTT в трекер местоположений от имени
// единицы, указанной в топике.
type LocationSubscriber struct {
	client    mqtt.Client
	locations service.LocationService
	logger    *logrus.Logger
	topic     string
	timeout   time.Duration
}

func NewLocationSubscriber(client mqtt.Client, locations service.LocationService, logger *logrus.Logger, topic string) *LocationSubscriber {
	return &LocationSubscriber{
		client:    client,
		locations: locations,
		logger:    logger,
		topic:     topic,
		timeout:   defaultIngestTimeout,
	}
}

// Start подключается к брокеру и подписывается на топик точек
func (s *LocationSubscriber) Start(ctx context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	token := s.client.Subscribe(s.topic, subscribeQoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(ctx, msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, token.Error())
	}
	s.logger.WithField("topic", s.topic).Info("MQTT location ingest started")
	return nil
}

// Stop отписывается и закрывает соединение
func (s *LocationSubscriber) Stop() {
	if token := s.client.Unsubscribe(s.topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		s.logger.WithError(token.Error()).Warn("Failed to unsubscribe from MQTT topic")
	}
	s.client.Disconnect(250)
	s.logger.Info("MQTT location ingest stopped")
}

func (s *LocationSubscriber) handle(ctx context.Context, topic string, payload []byte) {
	log := s.logger.WithFields(logrus.Fields{"component": "mqtt_ingest", "topic": topic})

	unitID, err := unitFromTopic(topic)
	if err != nil {
		log.WithError(err).Warn("Unexpected MQTT topic")
		return
	}

	var msg locationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.WithError(err).Warn("MQTT payload decode failed")
		return
	}
	if msg.UnitID != "" && msg.UnitID != unitID.String() {
		log.WithField("payload_unit_id", msg.UnitID).Warn("Unit id in payload does not match topic")
		return
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		log.Warn("MQTT payload without coordinates")
		return
	}

	sample := models.LocationSample{
		UnitID:     unitID,
		Latitude:   *msg.Latitude,
		Longitude:  *msg.Longitude,
		ObservedAt: msg.ObservedAt,
	}
	actor := models.Actor{ID: unitID.String(), Role: models.RoleFieldUnit}

	ingestCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.locations.Ingest(ingestCtx, actor, sample)
	switch {
	case errors.Is(err, models.ErrStaleUpdate):
		log.WithField("unit_id", unitID).Debug("Stale MQTT location ignored")
	case err != nil:
		log.WithError(err).WithField("unit_id", unitID).Warn("MQTT location rejected")
	default:
		log.WithFields(logrus.Fields{
			"unit_id": unitID,
			"emitted": result.Emitted,
			"version": result.Location.Version,
		}).Debug("MQTT location ingested")
	}
}

// unitFromTopic извлекает id единицы из топика вида units/<id>/location
func unitFromTopic(topic string) (uuid.UUID, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "units" {
		return uuid.Nil, fmt.Errorf("expected units/<unit_id>/location, got %q", topic)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid unit id in topic: %w", err)
	}
	return id, nil
}
