package sirendb

import "github.com/sirendb/sirendb/internal/storage"

// SirenMediaType enumerates the kinds of media attached to a location.
var SirenMediaType = &storage.Enum{
	Name:   "SirenMediaType",
	Values: []string{"SATELLITE_IMAGE", "STREET_IMAGE"},
}

func pk() storage.Column {
	return storage.Column{Name: "id", Type: storage.TypeInt, Doc: "Identifies the primary key from the database."}
}

func audit() []storage.Column {
	return []storage.Column{
		{Name: "created_timestamp", Type: storage.TypeTime, HasDefault: true, Doc: "Timestamp when this entry was created."},
		{Name: "created_by_id", Type: storage.TypeInt, Doc: "id of the user who created this entry."},
		{Name: "updated_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp when this entry was last updated."},
		{Name: "updated_by_id", Type: storage.TypeInt, Nullable: true, Doc: "id of the last user who updated this entry."},
	}
}

func auditRelationships() []storage.Relationship {
	return []storage.Relationship{
		{Name: "created_by", Target: "users", LocalColumn: "created_by_id", Doc: "The user who created this entry."},
		{Name: "updated_by", Target: "users", LocalColumn: "updated_by_id", Doc: "The user who last updated this entry."},
	}
}

func columns(groups ...[]storage.Column) []storage.Column {
	var out []storage.Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	Users = &storage.Table{
		Name:       "users",
		PrimaryKey: "id",
		Doc:        "Describes an authenticated user account.",
		Columns: []storage.Column{
			pk(),
			{Name: "username", Type: storage.TypeString, Doc: "The user's username."},
			{Name: "email", Type: storage.TypeString, Doc: "The user's E-Mail address."},
			{Name: "password_hash", Type: storage.TypeString, Doc: "Password hash"},
			{Name: "register_timestamp", Type: storage.TypeTime, HasDefault: true, Doc: "Identifies when the user registered their account."},
			{Name: "email_verified_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Identifies when the user verified their email address."},
		},
	}

	SirenManufacturers = &storage.Table{
		Name:       "siren_manufacturers",
		PrimaryKey: "id",
		Doc:        "Describes a manufacturer for a given siren.",
		Columns: columns([]storage.Column{pk()}, audit(), []storage.Column{
			{Name: "name", Type: storage.TypeString, Doc: "The name of the manufacturer."},
			{Name: "founded_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp when the company was founded."},
			{Name: "defunct_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp when the company went out of business."},
			{Name: "info", Type: storage.TypeString, Nullable: true, Doc: "Additional information about the manufacturer."},
		}),
		Relationships: auditRelationships(),
	}

	SirenModels = &storage.Table{
		Name:       "siren_models",
		PrimaryKey: "id",
		Doc:        "Describes a model for a given siren.",
		Columns: columns([]storage.Column{pk()}, audit(), []storage.Column{
			{Name: "name", Type: storage.TypeString, Doc: "The name of the model."},
			{Name: "manufacturer_id", Type: storage.TypeInt, Nullable: true, Doc: "Identifies the manufacturer's primary key from the database."},
			{Name: "start_of_production", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp when the model started production."},
			{Name: "end_of_production", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp when the model went out of production."},
			{Name: "info", Type: storage.TypeString, Nullable: true, Doc: "Additional information about the model."},
			{Name: "revision", Type: storage.TypeString, Nullable: true, Doc: "The model's specific revision."},
		}),
		Relationships: append(auditRelationships(),
			storage.Relationship{Name: "manufacturer", Target: "siren_manufacturers", LocalColumn: "manufacturer_id", Doc: "The manufacturer of the model."},
		),
	}

	SirenSystems = &storage.Table{
		Name:       "siren_systems",
		PrimaryKey: "id",
		Doc:        "Describes a collection of sirens that are managed by a local government or agency.",
		Columns: columns([]storage.Column{pk()}, audit(), []storage.Column{
			{Name: "name", Type: storage.TypeString, Doc: "The name of the system."},
			{Name: "start_of_service_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Relative timestamp when the system was put in to service."},
			{Name: "end_of_service_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Relative timestamp when the system was decommissioned."},
			{Name: "in_service", Type: storage.TypeBool, Nullable: true, Doc: "Whether or not the system is currently in service."},
			{Name: "city", Type: storage.TypeString, Nullable: true, Doc: "Name of the city that the system is designated for."},
			{Name: "county", Type: storage.TypeString, Nullable: true, Doc: "Name of the county that the system is designated for."},
			{Name: "state", Type: storage.TypeString, Nullable: true, Doc: "Name of the state that the system is designated for."},
			{Name: "country", Type: storage.TypeString, Nullable: true, Doc: "Name of the country that the system is designated for."},
			{Name: "postal_code", Type: storage.TypeString, Nullable: true, Doc: "Postal code that the system is designated for."},
			{Name: "siren_wiki_url", Type: storage.TypeString, Nullable: true, Doc: "The URL to the system's wiki.airraidsirens.net entry."},
		}),
		Relationships: append(auditRelationships(),
			storage.Relationship{
				Name: "locations", Target: "siren_locations", RemoteColumn: "system_id", List: true,
				OrderBy: "installation_timestamp", Desc: true,
				Doc: "Associated siren locations within this system, most recent installation first.",
			},
		),
	}

	Sirens = &storage.Table{
		Name:       "sirens",
		PrimaryKey: "id",
		Doc:        "Describes a siren installation site.",
		Columns: columns([]storage.Column{pk()}, []storage.Column{
			{Name: "model_id", Type: storage.TypeInt, Doc: "Identifies the model's primary key from the database."},
			{Name: "active", Type: storage.TypeBool, Nullable: true, Doc: "Whether or not the siren is active"},
		}, audit()),
		Relationships: append(auditRelationships(),
			storage.Relationship{Name: "model", Target: "siren_models", LocalColumn: "model_id", Doc: "The model of the siren."},
			storage.Relationship{Name: "locations", Target: "siren_locations", RemoteColumn: "siren_id", List: true, OrderBy: "id", Doc: "The geographic positions of the siren."},
		),
	}

	SirenLocations = &storage.Table{
		Name:       "siren_locations",
		PrimaryKey: "id",
		Doc:        "Describes a specific siren location.",
		Columns: columns([]storage.Column{pk()}, audit(), []storage.Column{
			{Name: "satellite_latitude", Type: storage.TypeFloat, Nullable: true, Doc: "The location's satellite view latitude."},
			{Name: "satellite_longitude", Type: storage.TypeFloat, Nullable: true, Doc: "The location's satellite view longitude."},
			{Name: "satellite_zoom", Type: storage.TypeFloat, Nullable: true, Doc: "The location's satellite view zoom."},
			{Name: "street_latitude", Type: storage.TypeFloat, Nullable: true, Doc: "The location's street view latitude."},
			{Name: "street_longitude", Type: storage.TypeFloat, Nullable: true, Doc: "The location's street view longitude."},
			{Name: "street_heading", Type: storage.TypeFloat, Nullable: true, Doc: "The location's street view heading."},
			{Name: "street_pitch", Type: storage.TypeFloat, Nullable: true, Doc: "The location's street view pitch."},
			{Name: "street_zoom", Type: storage.TypeFloat, Nullable: true, Doc: "The location's street view zoom."},
			{Name: "siren_id", Type: storage.TypeInt, Doc: "Identifies the siren's primary key from the database."},
			{Name: "system_id", Type: storage.TypeInt, Nullable: true, Doc: "Identifies the system's primary key from the database."},
			{Name: "installation_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp indicating when the siren was installed at this location."},
			{Name: "removal_timestamp", Type: storage.TypeTime, Nullable: true, Doc: "Timestamp indicating when the siren was removed from this location."},
		}),
		Relationships: append(auditRelationships(),
			storage.Relationship{Name: "siren", Target: "sirens", LocalColumn: "siren_id", Doc: "The siren at this location."},
			storage.Relationship{Name: "system", Target: "siren_systems", LocalColumn: "system_id", Doc: "The system that this location is a part of."},
			storage.Relationship{Name: "media", Target: "siren_media", RemoteColumn: "location_id", List: true, OrderBy: "id", Doc: "Media associated with this location."},
		),
	}

	SirenMedia = &storage.Table{
		Name:       "siren_media",
		PrimaryKey: "id",
		Doc:        "Describes downloadable content related to the siren location.",
		Columns: []storage.Column{
			pk(),
			{Name: "media_type", Type: storage.TypeEnum, Enum: SirenMediaType, Doc: "The type of media."},
			{Name: "filename", Type: storage.TypeString, Nullable: true, Doc: "The name of the file."},
			{Name: "mimetype", Type: storage.TypeString, Doc: "Mimetype of this file."},
			{Name: "kilobytes", Type: storage.TypeFloat, Doc: "Size in kilobytes of this media."},
			{Name: "location_id", Type: storage.TypeInt, Doc: "Identifies the siren location's primary key from the database."},
			{Name: "filesystem_uri", Type: storage.TypeString, Doc: "Identifies the location within the internal filesystem."},
		},
		Relationships: []storage.Relationship{
			{Name: "location", Target: "siren_locations", LocalColumn: "location_id", Doc: "The location associated with this media."},
		},
	}
)

// Tables returns every table of the domain in dependency order.
func Tables() []*storage.Table {
	return []*storage.Table{Users, SirenManufacturers, SirenModels, SirenSystems, Sirens, SirenLocations, SirenMedia}
}
