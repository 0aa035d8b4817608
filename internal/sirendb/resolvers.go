package sirendb

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/storage"
)

// MediaStorage locates uploaded media files.
type MediaStorage struct {
	Enabled bool
	BaseURL string
}

// URL returns the download location of filename.
func (m MediaStorage) URL(filename string) (string, bool) {
	if !m.Enabled {
		return "", false
	}
	return strings.TrimSuffix(m.BaseURL, "/") + "/" + filename, true
}

// RegisterResolvers binds the computed fields of the catalogue to d.
func RegisterResolvers(d *projection.Dispatcher, media MediaStorage) {
	d.Register("Siren", "current_location", currentLocation)
	d.Register("Siren", "previous_locations", previousLocations)
	d.Register("SirenMedia", "download_url", downloadURL(media))
}

func currentLocation(ctx context.Context, r *projection.Resolution, b projection.Branch, siren storage.Entity) (any, error) {
	locs, err := locationsByRecency(ctx, siren)
	if err != nil || len(locs) == 0 {
		return nil, err
	}
	return r.Related(ctx, b, "SirenLocation", locs[0])
}

func previousLocations(ctx context.Context, r *projection.Resolution, b projection.Branch, siren storage.Entity) (any, error) {
	locs, err := locationsByRecency(ctx, siren)
	if err != nil {
		return nil, err
	}
	if len(locs) > 0 {
		locs = locs[1:]
	}
	return r.RelatedList(ctx, b, "SirenLocation", locs)
}

type placed struct {
	loc  storage.Entity
	when time.Time
	id   int64
}

// locationsByRecency orders the siren's locations newest first by
// installation time, then creation time, then id.
func locationsByRecency(ctx context.Context, siren storage.Entity) ([]storage.Entity, error) {
	v, err := siren.Attr(ctx, "locations")
	if err != nil {
		return nil, err
	}
	all, ok := v.([]storage.Entity)
	if !ok {
		return nil, fmt.Errorf("sirendb: locations of %s is %T", siren.Key(), v)
	}
	ps := make([]placed, 0, len(all))
	for _, loc := range all {
		p := placed{loc: loc}
		for _, col := range []string{"installation_timestamp", "created_timestamp"} {
			v, err := loc.Attr(ctx, col)
			if err != nil {
				return nil, err
			}
			if t, ok := v.(time.Time); ok {
				p.when = t
				break
			}
		}
		if id, ok := loc.Key().ID.(int64); ok {
			p.id = id
		}
		ps = append(ps, p)
	}
	slices.SortStableFunc(ps, func(a, b placed) int {
		if c := b.when.Compare(a.when); c != 0 {
			return c
		}
		switch {
		case a.id > b.id:
			return -1
		case a.id < b.id:
			return 1
		}
		return 0
	})
	out := make([]storage.Entity, len(ps))
	for i, p := range ps {
		out[i] = p.loc
	}
	return out, nil
}

func downloadURL(media MediaStorage) projection.ResolverFunc {
	return func(ctx context.Context, _ *projection.Resolution, _ projection.Branch, m storage.Entity) (any, error) {
		if !media.Enabled {
			return nil, nil
		}
		v, err := m.Attr(ctx, "filename")
		if err != nil {
			return nil, err
		}
		name, ok := v.(string)
		if !ok || name == "" {
			return nil, nil
		}
		url, _ := media.URL(name)
		return url, nil
	}
}
