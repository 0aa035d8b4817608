// Package sirendb registers the siren catalogue: its tables, GraphQL types,
// computed fields and paginated root queries.
package sirendb

import (
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/schema"
)

func late(typeName string) schema.Thunk { return func() string { return typeName } }

// Register adds every siren type and root query to b.
func Register(b *schema.Builder) {
	b.Table("User", Users, schema.Only(
		"id", "username", "email", "register_timestamp", "email_verified_timestamp",
	))
	b.Table("SirenManufacturer", SirenManufacturers, schema.Only(
		"id", "created_timestamp", "updated_timestamp", "name",
		"founded_timestamp", "defunct_timestamp", "info",
	))
	b.Table("SirenModel", SirenModels, schema.Only(
		"id", "created_timestamp", "updated_timestamp", "name", "manufacturer", "manufacturer_id",
		"start_of_production", "end_of_production", "info", "revision",
	))
	b.Table("SirenSystem", SirenSystems,
		schema.Only(
			"id", "created_timestamp", "updated_timestamp", "name",
			"start_of_service_timestamp", "end_of_service_timestamp", "in_service",
			"city", "county", "state", "country", "postal_code", "siren_wiki_url", "locations",
		),
		schema.Late("locations", late("SirenLocation")),
	)
	b.Table("Siren", Sirens,
		schema.Only("id", "active", "model", "locations"),
		schema.Late("locations", late("SirenLocation")),
		schema.WithComputed(
			schema.Computed{
				Name: "current_location", Type: "SirenLocation", Nullable: true,
				Doc: "The most recent location of the siren.",
			},
			schema.Computed{
				Name: "previous_locations", Type: "SirenLocation", List: true,
				Doc: "Every earlier location of the siren, most recent first.",
			},
		),
		schema.FilterBy("id", "active"),
	)
	b.Table("SirenLocation", SirenLocations,
		schema.Only(
			"id", "satellite_latitude", "satellite_longitude", "satellite_zoom",
			"street_latitude", "street_longitude", "street_heading", "street_pitch", "street_zoom",
			"installation_timestamp", "removal_timestamp", "siren_id", "siren", "system_id", "system",
			"media", "created_timestamp", "updated_timestamp", "created_by", "updated_by",
		),
		schema.Late("media", late("SirenMedia")),
	)
	b.Table("SirenMedia", SirenMedia,
		schema.Only("id", "media_type", "mimetype", "kilobytes", "location_id", "location"),
		schema.WithComputed(schema.Computed{
			Name: "download_url", Type: "String", Nullable: true,
			Doc: "Network location of this media.",
		}),
	)

	b.Query("sirens", schema.RootField{
		Name: "sirens", Type: "Siren",
		Description: "Allows you to search through the list of sirens known to SirenDB.",
	})
	b.Query("siren_locations", schema.RootField{
		Name: "sirenLocations", Type: "SirenLocation",
		Description: "Return siren locations.",
	})
	b.Query("siren_models", schema.RootField{
		Name: "sirenModels", Type: "SirenModel",
		Description: "Return siren models.",
	})
	b.Query("siren_manufacturers", schema.RootField{
		Name: "sirenManufacturers", Type: "SirenManufacturer",
		Description: "Return siren manufacturers.",
	})
	b.Query("siren_systems", schema.RootField{
		Name: "sirenSystems", Type: "SirenSystem",
		Description: "Return siren systems.",
	})
}

// Build registers the catalogue on a fresh builder, freezes it and binds the
// computed field resolvers.
func Build(media MediaStorage) (*schema.Registry, *projection.Dispatcher, error) {
	b := schema.NewBuilder()
	Register(b)
	reg, err := b.Freeze()
	if err != nil {
		return nil, nil, err
	}
	d := projection.NewDispatcher()
	RegisterResolvers(d, media)
	if err := d.Validate(reg); err != nil {
		return nil, nil, err
	}
	return reg, d, nil
}
