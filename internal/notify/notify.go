// Package notify announces track changes as desktop notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/playback"
)

// Urgency is the freedesktop notification priority.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification is a single desktop notification.
type Notification struct {
	Summary    string
	Body       string
	Timeout    int32  // ms, -1 for the server default
	ReplacesID uint32 // 0 creates a new notification
	Urgency    Urgency
}

// Notifier sends desktop notifications. Implementations return 0 and a nil
// error when notifications are unavailable.
type Notifier interface {
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// NowPlaying turns engine track changes into notifications. Each new
// notification replaces the previous one so only the current track is shown.
type NowPlaying struct {
	notifier Notifier
	log      *zap.Logger
	lastID   uint32
}

// NewNowPlaying creates a NowPlaying. A nil logger is replaced by a no-op one.
func NewNowPlaying(n Notifier, log *zap.Logger) *NowPlaying {
	if log == nil {
		log = zap.NewNop()
	}
	return &NowPlaying{notifier: n, log: log}
}

// Run consumes sub until it closes or ctx is done. Failed notifications are
// logged and do not stop the loop.
func (p *NowPlaying) Run(ctx context.Context, sub *playback.Subscription) {
	defer p.dismiss()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case tc := <-sub.TrackChanged:
			p.announce(tc.Current)
		case ev := <-sub.Error:
			p.warn(ev)
		}
	}
}

func (p *NowPlaying) announce(t playback.Track) {
	if t.Title == "" {
		return
	}
	id, err := p.notifier.Notify(Notification{
		Summary:    "Now playing",
		Body:       trackBody(t),
		Timeout:    -1,
		ReplacesID: p.lastID,
		Urgency:    UrgencyLow,
	})
	if err != nil {
		p.log.Debug("notification failed", zap.String("title", t.Title), zap.Error(err))
		return
	}
	p.lastID = id
}

func (p *NowPlaying) warn(ev playback.ErrorEvent) {
	if ev.Operation != "load" {
		return
	}
	id, err := p.notifier.Notify(Notification{
		Summary:    "Cannot play " + ev.Title,
		Body:       fmt.Sprint(ev.Err),
		Timeout:    -1,
		ReplacesID: p.lastID,
		Urgency:    UrgencyNormal,
	})
	if err != nil {
		p.log.Debug("notification failed", zap.String("title", ev.Title), zap.Error(err))
		return
	}
	p.lastID = id
}

func (p *NowPlaying) dismiss() {
	if p.lastID == 0 {
		return
	}
	if err := p.notifier.Close(p.lastID); err != nil {
		p.log.Debug("closing notification failed", zap.Error(err))
	}
	p.lastID = 0
}

func trackBody(t playback.Track) string {
	total := int(t.Duration)
	body := fmt.Sprintf("%s\n%d:%02d", t.Title, total/60, total%60)
	if t.Size > 0 {
		body += " · " + humanize.Bytes(uint64(t.Size))
	}
	return body
}
