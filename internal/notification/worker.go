package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parkspot-backend/internal/model"
	"parkspot-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending departure reminders.
type WorkerPool struct {
	size    int
	jobs    chan model.ParkingRecord
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.ParkingRecord, size), // Buffered channel
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Reminder worker %d started", id)
	for {
		select {
		case rec := <-wp.jobs:
			log.Printf("Reminder worker %d processing record %s", id, rec.ID)
			wp.remindForRecord(ctx, rec)
		case <-ctx.Done():
			log.Printf("Reminder worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(rec model.ParkingRecord) {
	wp.jobs <- rec
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.ParkingRecord {
	return wp.jobs
}

// SetSender swaps the push sender, used by tests.
func (wp *WorkerPool) SetSender(s NotificationSender) {
	wp.sender = s
}

// remindForRecord sends a departure reminder to every subscription of
// the record's owner, then marks the record reminded so the scheduler
// never picks it up again.
func (wp *WorkerPool) remindForRecord(ctx context.Context, rec model.ParkingRecord) {
	subs, err := wp.store.SubscriptionsForUser(ctx, rec.UserID)
	if err != nil {
		log.Printf("Error fetching subscriptions for user %s: %v", rec.UserID, err)
		return
	}

	if len(subs) > 0 {
		payload, err := json.Marshal(map[string]string{
			"title": "Still parked?",
			"body": fmt.Sprintf("Your car has been at level %s, slot %s since %s.",
				rec.Level, rec.SlotNumber, rec.CreatedAt.Format("15:04")),
			"record_id": rec.ID,
		})
		if err != nil {
			log.Printf("Error encoding reminder payload for record %s: %v", rec.ID, err)
			return
		}

		log.Printf("Sending %d reminders for record %s", len(subs), rec.ID)
		for _, sub := range subs {
			wp.sendNotification(ctx, sub, payload)
		}
	}

	if err := wp.store.MarkReminded(ctx, rec.ID, time.Now().UTC()); err != nil {
		log.Printf("Failed to mark record %s reminded: %v", rec.ID, err)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending reminder to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
