package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/notification"
)

type Notifications struct{ handle }

func (r *Notifications) Insert(_ context.Context, n notification.Notification) (*notification.Notification, error) {
	var out *notification.Notification
	err := r.run(func(d *data) error {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = r.now()
		n.Read = false
		n.PublishedAt = nil
		d.notifications = append(d.notifications, n)
		out = &n
		return nil
	})
	return out, err
}

func (d *data) notificationIndex(id uuid.UUID) int {
	for i, n := range d.notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (r *Notifications) GetByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	var out *notification.Notification
	err := r.run(func(d *data) error {
		i := d.notificationIndex(id)
		if i < 0 {
			return notification.ErrNotificationNotFound
		}
		n := d.notifications[i]
		out = &n
		return nil
	})
	return out, err
}

func (r *Notifications) ListForRecipient(_ context.Context, rc notification.Recipient) ([]notification.Notification, error) {
	var out []notification.Notification
	err := r.run(func(d *data) error {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			n := d.notifications[i]
			if n.RecipientType == rc.Type && n.RecipientID == rc.ID {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

func (r *Notifications) MarkRead(_ context.Context, id uuid.UUID) error {
	return r.run(func(d *data) error {
		i := d.notificationIndex(id)
		if i < 0 {
			return notification.ErrNotificationNotFound
		}
		d.notifications[i].Read = true
		return nil
	})
}

func (r *Notifications) MarkAllRead(_ context.Context, rc notification.Recipient) (int64, error) {
	var changed int64
	err := r.run(func(d *data) error {
		for i, n := range d.notifications {
			if n.RecipientType == rc.Type && n.RecipientID == rc.ID && !n.Read {
				d.notifications[i].Read = true
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func (r *Notifications) CountUnread(_ context.Context, rc notification.Recipient) (int64, error) {
	var count int64
	err := r.run(func(d *data) error {
		for _, n := range d.notifications {
			if n.RecipientType == rc.Type && n.RecipientID == rc.ID && !n.Read {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *Notifications) ListUnpublished(_ context.Context, limit int) ([]notification.Notification, error) {
	var out []notification.Notification
	err := r.run(func(d *data) error {
		for _, n := range d.notifications {
			if n.PublishedAt != nil {
				continue
			}
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, n)
		}
		return nil
	})
	return out, err
}

func (r *Notifications) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	return r.run(func(d *data) error {
		for _, id := range ids {
			if i := d.notificationIndex(id); i >= 0 {
				t := at
				d.notifications[i].PublishedAt = &t
			}
		}
		return nil
	})
}
