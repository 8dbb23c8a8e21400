package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventKind decides which admission path an event uses.
type EventKind string

const (
	// EventStandard is capacity-bearing; merchandise is an optional add-on.
	EventStandard EventKind = "standard"
	// EventMerchandise sells merchandise only; stock is the sole admission limit.
	EventMerchandise EventKind = "merchandise"
	// EventTeam admits participants through Team Formation only.
	EventTeam EventKind = "team"
)

// EligibilityRule gates who may register.
type EligibilityRule string

const (
	EligibilityOpen       EligibilityRule = "open"
	EligibilityRestricted EligibilityRule = "restricted_class"
)

// VariantGroup is a named axis of choice on a merchandise item (e.g. "Size").
// swagger:model VariantGroup
type VariantGroup struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Allows reports whether option is one of the group's allowed options.
func (g VariantGroup) Allows(option string) bool {
	for _, o := range g.Options {
		if o == option {
			return true
		}
	}
	return false
}

// MerchandiseItem is a limited-stock line item sold with an event.
// Stock is only mutated through an InventoryTx.
// swagger:model MerchandiseItem
type MerchandiseItem struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	Name          string         `json:"name"`
	UnitPrice     int64          `json:"unit_price"`
	Stock         int            `json:"stock"`
	PerUserLimit  int            `json:"per_user_limit"`
	VariantGroups []VariantGroup `json:"variant_groups"`
	Position      int            `json:"position"`
}

// Event is the catalog entry for a fest event.
// swagger:model Event
type Event struct {
	ID                   string             `json:"id"`
	OrganizerID          string             `json:"organizer_id"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Kind                 EventKind          `json:"kind"`
	Fee                  int64              `json:"fee"`
	Capacity             int                `json:"capacity"`
	Eligibility          EligibilityRule    `json:"eligibility"`
	EligibleClass        string             `json:"eligible_class,omitempty"`
	TeamSizeMax          int                `json:"team_size_max,omitempty"`
	StartsAt             *time.Time         `json:"starts_at,omitempty"`
	EndsAt               *time.Time         `json:"ends_at,omitempty"`
	Deadline             *time.Time         `json:"deadline,omitempty"`
	FormFields           []FormField        `json:"form_fields"`
	MerchandiseItems     []*MerchandiseItem `json:"merchandise_items"`
	CurrentRegistrations int                `json:"current_registrations"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// CapacityBearing reports whether confirmed registrations count against Capacity.
func (e *Event) CapacityBearing() bool {
	return e.Kind != EventMerchandise
}

// RequiresMerchandise reports whether a registration must select at least one item.
func (e *Event) RequiresMerchandise() bool {
	return e.Kind == EventMerchandise
}

// IsFull reports whether a capacity-bearing event has no room for another confirmed registration.
func (e *Event) IsFull() bool {
	return e.CapacityBearing() && e.Capacity > 0 && e.CurrentRegistrations >= e.Capacity
}

// DeadlinePassed reports whether registration closed before now.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.Deadline != nil && now.After(*e.Deadline)
}

// Admits reports whether a participant of the given class passes the eligibility rule.
func (e *Event) Admits(class string) bool {
	if e.Eligibility != EligibilityRestricted {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(class), strings.TrimSpace(e.EligibleClass))
}

// ManagedBy reports whether p may act as organizer for the event.
func (e *Event) ManagedBy(p *Principal) bool {
	if p == nil {
		return false
	}
	return e.OrganizerID == p.UserID || p.HasRole(RoleAdmin)
}

// Item returns the merchandise item with the given ID, or nil.
func (e *Event) Item(id string) *MerchandiseItem {
	for _, it := range e.MerchandiseItems {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Validate checks the structural fields. It returns one message per problem.
func (e *Event) Validate() []string {
	var errs []string
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, "name is required")
	}
	switch e.Kind {
	case EventStandard, EventMerchandise:
	case EventTeam:
		if e.TeamSizeMax < 1 {
			errs = append(errs, "team_size_max must be at least 1 for team events")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown kind %q", e.Kind))
	}
	if e.Fee < 0 {
		errs = append(errs, "fee must not be negative")
	}
	if e.Capacity < 0 {
		errs = append(errs, "capacity must not be negative")
	}
	switch e.Eligibility {
	case EligibilityOpen:
	case EligibilityRestricted:
		if strings.TrimSpace(e.EligibleClass) == "" {
			errs = append(errs, "eligible_class is required for restricted events")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown eligibility %q", e.Eligibility))
	}
	if e.Kind == EventMerchandise && len(e.MerchandiseItems) == 0 {
		errs = append(errs, "merchandise events need at least one item")
	}
	if e.Kind == EventTeam && len(e.MerchandiseItems) > 0 {
		errs = append(errs, "team events cannot sell merchandise")
	}

	keys := make(map[string]struct{}, len(e.FormFields))
	for _, f := range e.FormFields {
		if f.Key == "" {
			errs = append(errs, "form field key is required")
			continue
		}
		if _, dup := keys[f.Key]; dup {
			errs = append(errs, fmt.Sprintf("duplicate form field %q", f.Key))
		}
		keys[f.Key] = struct{}{}
		if !f.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("form field %q has unknown kind %q", f.Key, f.Kind))
		}
	}

	for _, it := range e.MerchandiseItems {
		if strings.TrimSpace(it.Name) == "" {
			errs = append(errs, "merchandise item name is required")
		}
		if it.UnitPrice < 0 || it.Stock < 0 || it.PerUserLimit < 0 {
			errs = append(errs, fmt.Sprintf("%s: price, stock and per_user_limit must not be negative", it.Name))
		}
		groups := make(map[string]struct{}, len(it.VariantGroups))
		for _, g := range it.VariantGroups {
			if g.Name == "" || len(g.Options) == 0 {
				errs = append(errs, fmt.Sprintf("%s: variant groups need a name and at least one option", it.Name))
				continue
			}
			if _, dup := groups[g.Name]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate variant group %q", it.Name, g.Name))
			}
			groups[g.Name] = struct{}{}
		}
	}
	return errs
}

// EventDetailsUpdate carries the fields an organizer may edit at any time. Nil means unchanged.
type EventDetailsUpdate struct {
	Name        *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Deadline    *time.Time
}

// EventRepository defines the interface for event (catalog) storage.
type EventRepository interface {
	// Create stores the event and its merchandise items, setting their IDs.
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	UpdateDetails(ctx context.Context, eventID string, upd EventDetailsUpdate) (*Event, error)
	// ReplaceStructure rewrites fee, capacity, kind, eligibility, form and merchandise.
	// It returns ErrEventLocked if the event has any registration.
	ReplaceStructure(ctx context.Context, event *Event) error
}

// CatalogService is the organizer-facing catalog API.
type CatalogService interface {
	CreateEvent(ctx context.Context, organizer *Principal, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	UpdateEventDetails(ctx context.Context, eventID string, organizer *Principal, upd EventDetailsUpdate) (*Event, error)
	UpdateEventStructure(ctx context.Context, eventID string, organizer *Principal, event *Event) (*Event, error)
}
