package tracker

import (
	"context"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
)

// UpdateProfile saves the viewer's profile, showing the new values before
// the backend confirms them.
func (t *Tracker) UpdateProfile(ctx context.Context, u types.ProfileUpdate) (_ types.Profile, err error) {
	if err := types.ValidateProfile(u); err != nil {
		return types.Profile{}, err
	}
	ctx, span := t.startSpan(ctx, "update-profile")
	defer func() { endSpan(span, err) }()

	tx := t.store.Begin("update-profile")
	tx.Patch(cache.ProfileKey{}, applyProfile(u, t.cachedOffice(u.OfficeID)))

	p, err := t.api.UpdateProfile(ctx, u)
	if err != nil {
		tx.Rollback()
		return types.Profile{}, err
	}
	tx.Commit()
	t.store.Set(cache.ProfileKey{}, p)
	return p, nil
}

// cachedOffice returns the reference of office id if the office list is cached.
func (t *Tracker) cachedOffice(id int64) *types.OfficeRef {
	if id == 0 {
		return nil
	}
	offices, ok := cache.Lookup[[]types.Office](t.store, cache.OfficesKey{})
	if !ok {
		return nil
	}
	for _, o := range offices {
		if o.ID == id {
			ref := o.Ref()
			return &ref
		}
	}
	return nil
}
