package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/medimatch/medimatch/internal/application/prescription"
	"github.com/medimatch/medimatch/internal/infrastructure/database/redis"
	"github.com/medimatch/medimatch/internal/infrastructure/messaging/kafka"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/prometheus"
	"github.com/medimatch/medimatch/pkg/errors"
)

// processor handles one OCR job per message: it takes the per-prescription
// lock, runs the extraction pipeline, and publishes the completion event.
type processor struct {
	rx        prescription.Service
	publisher *kafka.EventPublisher
	redis     *redis.Client
	metrics   *prometheus.AppMetrics
	log       logging.Logger
}

// handle is the kafka.MessageHandler for prescription.ocr.requested. A
// returned error triggers the consumer's retry and dead-letter handling, so
// only failures worth re-running propagate.
func (p *processor) handle(ctx context.Context, msg *kafka.Message) error {
	var env kafka.EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		// Malformed messages never succeed on retry; drop them.
		p.log.Error("discarding undecodable message",
			logging.Int64("offset", msg.Offset), logging.Err(err))
		return nil
	}
	var payload kafka.OCRRequestedPayload
	if err := env.DecodePayload(&payload); err != nil || payload.PrescriptionID == "" {
		p.log.Error("discarding message with invalid payload",
			logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}

	unlock := p.tryLock(ctx, payload.PrescriptionID)
	if unlock == nil {
		return nil
	}
	defer unlock()

	start := time.Now()
	dto, err := p.rx.Process(ctx, payload.PrescriptionID)
	if err != nil {
		if errors.IsNotFound(err) {
			p.log.Warn("prescription gone, dropping job",
				logging.String("prescription_id", payload.PrescriptionID))
			return nil
		}
		p.metrics.OCRProcessedTotal.WithLabelValues("unknown", "failed").Inc()
		p.log.Error("ocr processing failed",
			logging.String("prescription_id", payload.PrescriptionID), logging.Err(err))
		return err
	}

	engine := string(dto.Engine)
	p.metrics.OCRProcessedTotal.WithLabelValues(engine, string(dto.Status)).Inc()
	p.metrics.OCRDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())

	if err := p.publisher.PublishOCRCompleted(ctx, kafka.OCRCompletedPayload{
		PrescriptionID: dto.ID,
		Status:         string(dto.Status),
		Engine:         engine,
		ItemCount:      len(dto.Items),
		CompletedAt:    time.Now().UTC(),
	}); err != nil {
		// The prescription is already persisted; a lost completion event
		// is not worth reprocessing the image.
		p.log.Warn("failed to publish completion event",
			logging.String("prescription_id", dto.ID), logging.Err(err))
	}

	p.log.Info("prescription processed",
		logging.String("prescription_id", dto.ID),
		logging.String("status", string(dto.Status)),
		logging.Int("items", len(dto.Items)),
	)
	return nil
}

// tryLock acquires the per-prescription mutex and returns its release
// function. A nil return means another worker holds the job. When Redis is
// down the job proceeds unlocked rather than stalling the queue.
func (p *processor) tryLock(ctx context.Context, id string) func() {
	if p.redis == nil {
		return func() {}
	}
	m := redis.NewMutex(p.redis, "ocr:"+id, processLockTTL)
	ok, err := m.TryLock(ctx)
	if err != nil {
		p.log.Warn("lock unavailable, processing without dedup",
			logging.String("prescription_id", id), logging.Err(err))
		return func() {}
	}
	if !ok {
		p.log.Info("prescription already being processed elsewhere",
			logging.String("prescription_id", id))
		return nil
	}
	return func() {
		if err := m.Unlock(context.Background()); err != nil {
			p.log.Warn("failed to release lock",
				logging.String("prescription_id", id), logging.Err(err))
		}
	}
}
