package entity

import (
	"time"

	"github.com/google/uuid"
)

// Datasource supported source types.
const (
	DatasourceTypePostgres  = "postgres"
	DatasourceTypeMySQL     = "mysql"
	DatasourceTypeSQLServer = "sqlserver"
)

// Datasource describes a configured relational source, its destination
// collection and the mapping between the two. Configuration management owns
// these rows; the sync engine reads them and only ever advances the watermark.
type Datasource struct {
	id              uuid.UUID
	name            string
	sourceType      string
	host            string
	port            int
	database        string
	username        string
	password        string
	queryTemplate   string
	fieldMapping    map[string]string
	keyField        string
	embeddingFields []string
	collection      string
	batchSize       int
	batchDelay      time.Duration
	cronSchedule    string
	webhookSecret   string
	lastSyncedAt    *time.Time
	enabled         bool
	createdAt       time.Time
	updatedAt       time.Time
}

// RestoreDatasource creates a Datasource entity from stored data.
func RestoreDatasource(
	id uuid.UUID,
	name string,
	sourceType string,
	host string,
	port int,
	database string,
	username string,
	password string,
	queryTemplate string,
	fieldMapping map[string]string,
	keyField string,
	embeddingFields []string,
	collection string,
	batchSize int,
	batchDelay time.Duration,
	cronSchedule string,
	webhookSecret string,
	lastSyncedAt *time.Time,
	enabled bool,
	createdAt time.Time,
	updatedAt time.Time,
) *Datasource {
	if fieldMapping == nil {
		fieldMapping = map[string]string{}
	}
	return &Datasource{
		id:              id,
		name:            name,
		sourceType:      sourceType,
		host:            host,
		port:            port,
		database:        database,
		username:        username,
		password:        password,
		queryTemplate:   queryTemplate,
		fieldMapping:    fieldMapping,
		keyField:        keyField,
		embeddingFields: embeddingFields,
		collection:      collection,
		batchSize:       batchSize,
		batchDelay:      batchDelay,
		cronSchedule:    cronSchedule,
		webhookSecret:   webhookSecret,
		lastSyncedAt:    lastSyncedAt,
		enabled:         enabled,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the datasource ID.
func (d *Datasource) ID() uuid.UUID {
	return d.id
}

// Name returns the display name.
func (d *Datasource) Name() string {
	return d.name
}

// SourceType returns the source driver type (postgres, mysql, sqlserver).
func (d *Datasource) SourceType() string {
	return d.sourceType
}

// Host returns the source host.
func (d *Datasource) Host() string {
	return d.host
}

// Port returns the source port.
func (d *Datasource) Port() int {
	return d.port
}

// Database returns the source database name.
func (d *Datasource) Database() string {
	return d.database
}

// Username returns the source username.
func (d *Datasource) Username() string {
	return d.username
}

// Password returns the source password.
func (d *Datasource) Password() string {
	return d.password
}

// QueryTemplate returns the configured query with {{offset}}/{{limit}} placeholders.
func (d *Datasource) QueryTemplate() string {
	return d.queryTemplate
}

// FieldMapping maps source column names to destination payload keys.
func (d *Datasource) FieldMapping() map[string]string {
	return d.fieldMapping
}

// KeyField returns the source column holding the primary key.
func (d *Datasource) KeyField() string {
	return d.keyField
}

// EmbeddingFields returns the columns concatenated into embedding text.
func (d *Datasource) EmbeddingFields() []string {
	return d.embeddingFields
}

// Collection returns the destination collection name.
func (d *Datasource) Collection() string {
	return d.collection
}

// BatchSize returns the configured page size.
func (d *Datasource) BatchSize() int {
	return d.batchSize
}

// BatchDelay returns the configured inter-batch delay for incremental syncs.
func (d *Datasource) BatchDelay() time.Duration {
	return d.batchDelay
}

// CronSchedule returns the optional cron expression, empty when unscheduled.
func (d *Datasource) CronSchedule() string {
	return d.cronSchedule
}

// WebhookSecret returns the shared secret for the webhook trigger endpoint.
func (d *Datasource) WebhookSecret() string {
	return d.webhookSecret
}

// LastSyncedAt returns the incremental watermark, nil before the first run.
func (d *Datasource) LastSyncedAt() *time.Time {
	return d.lastSyncedAt
}

// Enabled returns whether the datasource accepts new sync jobs.
func (d *Datasource) Enabled() bool {
	return d.enabled
}

// CreatedAt returns the creation timestamp.
func (d *Datasource) CreatedAt() time.Time {
	return d.createdAt
}

// UpdatedAt returns the last update timestamp.
func (d *Datasource) UpdatedAt() time.Time {
	return d.updatedAt
}

// AdvanceWatermark moves the incremental watermark forward. The watermark is
// monotonic; an earlier timestamp is ignored so a late-finishing older run
// cannot roll a newer run back.
func (d *Datasource) AdvanceWatermark(t time.Time) bool {
	if d.lastSyncedAt != nil && !t.After(*d.lastSyncedAt) {
		return false
	}
	d.lastSyncedAt = &t
	d.updatedAt = time.Now()
	return true
}
