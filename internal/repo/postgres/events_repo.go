package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/observability"
	"github.com/victorjakob/mamareykjavik/internal/utils"
)

const eventColumns = `id, slug, name, shortdescription, description, date, duration, location,
	price, payment, host, host_secondary, capacity, image,
	early_bird_price, early_bird_date,
	has_sliding_scale, sliding_scale_min, sliding_scale_max, sliding_scale_suggested,
	hosting_wl_policy_agreed, facebook_link, created_at, updated_at`

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *EventsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var payment string

	err := row.Scan(
		&e.ID, &e.Slug, &e.Name, &e.ShortDescription, &e.Description, &e.Date, &e.Duration, &e.Location,
		&e.Price, &payment, &e.Host, &e.HostSecondary, &e.Capacity, &e.Image,
		&e.EarlyBirdPrice, &e.EarlyBirdDate,
		&e.HasSlidingScale, &e.SlidingScaleMin, &e.SlidingScaleMax, &e.SlidingScaleSuggested,
		&e.HostingPolicyAgreed, &e.FacebookLink, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return event.Event{}, err
	}

	e.Payment = event.Payment(payment)
	return e, nil
}

func (r *EventsRepo) GetBySlug(ctx context.Context, slug string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_slug", func() error {
		var err error
		e, err = scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}
	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}

	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		var err error
		e, err = scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}
	return e, nil
}

// ListVariants returns the event's ticket variants in their saved order.
func (r *EventsRepo) ListVariants(ctx context.Context, eventID string) ([]event.TicketVariant, error) {
	var out []event.TicketVariant

	err := r.observe("events.list_variants", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT name, price, capacity, meta
			FROM ticket_variants
			WHERE event_id = $1
			ORDER BY position ASC`, eventID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var v event.TicketVariant
			if err := rows.Scan(&v.Name, &v.Price, &v.Capacity, &v.Meta); err != nil {
				return err
			}
			if v.Meta == nil {
				v.Meta = map[string]any{}
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUpcoming pages events dated at or after from, ordered by (date, id).
// Each event carries its ticket variants.
func (r *EventsRepo) ListUpcoming(ctx context.Context, from time.Time, after *utils.EventCursor, limit int) ([]event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE date >= $1`
	args := []any{from.UTC()}

	if after != nil {
		query += ` AND (date, id) > ($2, $3)`
		args = append(args, after.Date.UTC(), after.ID)
	}

	args = append(args, limit)
	if after != nil {
		query += ` ORDER BY date ASC, id ASC LIMIT $4`
	} else {
		query += ` ORDER BY date ASC, id ASC LIMIT $2`
	}

	out := make([]event.Event, 0, limit)

	err := r.observe("events.list_upcoming", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if err := r.attachVariants(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EventsRepo) attachVariants(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, len(events))
	index := make(map[string]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
	}

	return r.observe("events.list_variants_batch", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT event_id::text, name, price, capacity, meta
			FROM ticket_variants
			WHERE event_id = ANY($1::uuid[])
			ORDER BY event_id, position ASC`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var eventID string
			var v event.TicketVariant
			if err := rows.Scan(&eventID, &v.Name, &v.Price, &v.Capacity, &v.Meta); err != nil {
				return err
			}
			if v.Meta == nil {
				v.Meta = map[string]any{}
			}
			if i, ok := index[eventID]; ok {
				events[i].TicketVariants = append(events[i].TicketVariants, v)
			}
		}
		return rows.Err()
	})
}

// Create inserts the event and its variants in one transaction.
func (r *EventsRepo) Create(ctx context.Context, p event.Payload) (e event.Event, err error) {
	e = event.NewFromPayload(p)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return event.Event{}, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = r.observe("events.create.insert", func() error {
		_, err := tx.Exec(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
			eventArgs(e)...)
		return err
	})
	if err != nil {
		if isSlugViolation(err) {
			return event.Event{}, event.ErrSlugTaken
		}
		return event.Event{}, err
	}

	if err = r.replaceVariants(ctx, tx, e.ID, e.TicketVariants); err != nil {
		return event.Event{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

// Update overwrites every payload-owned column of the event and replaces its
// variants with p.TicketVariants.
func (r *EventsRepo) Update(ctx context.Context, id string, p event.Payload) (err error) {
	if _, perr := uuid.Parse(id); perr != nil {
		return event.ErrNotFound
	}

	var e event.Event
	e.Apply(p)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var affected int64
	err = r.observe("events.update", func() error {
		tag, err := tx.Exec(ctx, `
			UPDATE events
			SET slug = $2,
				name = $3,
				shortdescription = $4,
				description = $5,
				date = $6,
				duration = $7,
				location = $8,
				price = $9,
				payment = $10,
				host = $11,
				host_secondary = $12,
				capacity = $13,
				image = $14,
				early_bird_price = $15,
				early_bird_date = $16,
				has_sliding_scale = $17,
				sliding_scale_min = $18,
				sliding_scale_max = $19,
				sliding_scale_suggested = $20,
				hosting_wl_policy_agreed = $21,
				facebook_link = $22,
				updated_at = NOW()
			WHERE id = $1`,
			id, e.Slug, e.Name, e.ShortDescription, e.Description, e.Date, e.Duration, e.Location,
			e.Price, string(e.Payment), e.Host, e.HostSecondary, e.Capacity, e.Image,
			e.EarlyBirdPrice, e.EarlyBirdDate,
			e.HasSlidingScale, e.SlidingScaleMin, e.SlidingScaleMax, e.SlidingScaleSuggested,
			e.HostingPolicyAgreed, e.FacebookLink,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		if isSlugViolation(err) {
			return event.ErrSlugTaken
		}
		return err
	}
	if affected == 0 {
		err = event.ErrNotFound
		return err
	}

	if err = r.replaceVariants(ctx, tx, id, e.TicketVariants); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *EventsRepo) replaceVariants(ctx context.Context, tx pgx.Tx, eventID string, variants []event.TicketVariant) error {
	err := r.observe("events.variants.delete", func() error {
		_, err := tx.Exec(ctx, `DELETE FROM ticket_variants WHERE event_id = $1`, eventID)
		return err
	})
	if err != nil || len(variants) == 0 {
		return err
	}

	batch := &pgx.Batch{}
	for i, v := range variants {
		meta := v.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(`
			INSERT INTO ticket_variants (id, event_id, position, name, price, capacity, meta)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			uuid.NewString(), eventID, i, v.Name, v.Price, v.Capacity, meta)
	}

	return r.observe("events.variants.insert", func() error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func eventArgs(e event.Event) []any {
	return []any{
		e.ID, e.Slug, e.Name, e.ShortDescription, e.Description, e.Date, e.Duration, e.Location,
		e.Price, string(e.Payment), e.Host, e.HostSecondary, e.Capacity, e.Image,
		e.EarlyBirdPrice, e.EarlyBirdDate,
		e.HasSlidingScale, e.SlidingScaleMin, e.SlidingScaleMax, e.SlidingScaleSuggested,
		e.HostingPolicyAgreed, e.FacebookLink, e.CreatedAt, e.UpdatedAt,
	}
}
