package memory

import (
	"time"

	"campusfest/internal/domain"
)

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneEvent(e *domain.Event) *domain.Event {
	cp := *e
	cp.StartsAt = cloneTime(e.StartsAt)
	cp.EndsAt = cloneTime(e.EndsAt)
	cp.Deadline = cloneTime(e.Deadline)
	cp.FormFields = append([]domain.FormField{}, e.FormFields...)
	cp.MerchandiseItems = make([]*domain.MerchandiseItem, len(e.MerchandiseItems))
	for i, it := range e.MerchandiseItems {
		item := *it
		item.VariantGroups = make([]domain.VariantGroup, len(it.VariantGroups))
		for j, g := range it.VariantGroups {
			item.VariantGroups[j] = domain.VariantGroup{Name: g.Name, Options: append([]string{}, g.Options...)}
		}
		cp.MerchandiseItems[i] = &item
	}
	return &cp
}

func cloneRegistration(r *domain.Registration) *domain.Registration {
	cp := *r
	cp.TicketID = cloneString(r.TicketID)
	cp.PaymentProofRef = cloneString(r.PaymentProofRef)
	cp.TeamID = cloneString(r.TeamID)
	cp.AttendedAt = cloneTime(r.AttendedAt)
	cp.MerchandiseSelections = make([]domain.MerchandiseSelection, len(r.MerchandiseSelections))
	for i, sel := range r.MerchandiseSelections {
		s := sel
		if sel.Variant != nil {
			s.Variant = make(map[string]string, len(sel.Variant))
			for k, v := range sel.Variant {
				s.Variant[k] = v
			}
		}
		cp.MerchandiseSelections[i] = s
	}
	cp.FormResponses = make(domain.FormResponses, len(r.FormResponses))
	for k, v := range r.FormResponses {
		if v.List != nil {
			v.List = append([]string{}, v.List...)
		}
		cp.FormResponses[k] = v
	}
	return &cp
}

func cloneTeam(t *domain.Team) *domain.Team {
	cp := *t
	cp.Members = append([]string{}, t.Members...)
	return &cp
}
