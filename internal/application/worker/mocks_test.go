package worker

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

// memoryJobStore is an in-memory SyncJobRepository.
type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*jobRecord
}

type jobRecord struct {
	datasourceID uuid.UUID
	mode         valueobject.SyncMode
	status       valueobject.JobStatus
	total        *int
	processed    int
	successful   int
	failed       int
	errorMessage *string
	metadata     map[string]any
	startedAt    *time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[uuid.UUID]*jobRecord)}
}

func (s *memoryJobStore) Save(_ context.Context, job *entity.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID()] = &jobRecord{
		datasourceID: job.DatasourceID(),
		mode:         job.Mode(),
		status:       job.Status(),
		total:        job.TotalRecords(),
		processed:    job.ProcessedRecords(),
		successful:   job.SuccessfulRecords(),
		failed:       job.FailedRecords(),
		errorMessage: job.ErrorMessage(),
		metadata:     job.Metadata(),
		startedAt:    job.StartedAt(),
		completedAt:  job.CompletedAt(),
		createdAt:    job.CreatedAt(),
		updatedAt:    job.UpdatedAt(),
	}
	return nil
}

func (s *memoryJobStore) FindByID(_ context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return entity.RestoreSyncJob(
		id, record.datasourceID, record.mode, record.status,
		record.total, record.processed, record.successful, record.failed,
		record.errorMessage, record.metadata, record.startedAt, record.completedAt,
		record.createdAt, record.updatedAt,
	), nil
}

func (s *memoryJobStore) FindByDatasourceID(
	ctx context.Context,
	datasourceID uuid.UUID,
	_ outbound.SyncJobFilters,
) ([]*entity.SyncJob, int, error) {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0)
	for id, record := range s.jobs {
		if record.datasourceID == datasourceID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	jobs := make([]*entity.SyncJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, len(jobs), nil
}

func (s *memoryJobStore) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status valueobject.JobStatus,
	errorMessage *string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return entity.ErrJobNotFound
	}
	now := time.Now()
	record.status = status
	record.errorMessage = errorMessage
	record.updatedAt = now
	if status == valueobject.JobStatusRunning {
		record.startedAt = &now
	}
	if status.IsTerminal() {
		record.completedAt = &now
	}
	return nil
}

func (s *memoryJobStore) IncrementProgress(_ context.Context, id uuid.UUID, successful, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return entity.ErrJobNotFound
	}
	record.processed += successful + failed
	record.successful += successful
	record.failed += failed
	record.updatedAt = time.Now()
	return nil
}

func (s *memoryJobStore) SetTotalRecords(_ context.Context, id uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return entity.ErrJobNotFound
	}
	record.total = &total
	return nil
}

func (s *memoryJobStore) FindStale(_ context.Context, _ time.Time) ([]*entity.SyncJob, error) {
	return nil, nil
}

func (s *memoryJobStore) DeleteTerminalBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *memoryJobStore) record(id uuid.UUID) jobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

// memoryErrorStore is an in-memory SyncErrorRepository.
type memoryErrorStore struct {
	mu    sync.Mutex
	saved []*entity.SyncError
}

func newMemoryErrorStore() *memoryErrorStore {
	return &memoryErrorStore{}
}

func (s *memoryErrorStore) Save(_ context.Context, syncError *entity.SyncError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, syncError)
	return nil
}

func (s *memoryErrorStore) FindByJobID(_ context.Context, jobID uuid.UUID) ([]*entity.SyncError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*entity.SyncError, 0)
	for _, syncError := range s.saved {
		if syncError.JobID() == jobID {
			result = append(result, syncError)
		}
	}
	return result, nil
}

func (s *memoryErrorStore) DistinctRecordIDs(_ context.Context, jobID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, syncError := range s.saved {
		if syncError.JobID() == jobID && syncError.RecordID() != nil && !syncError.Resolved() {
			if !seen[*syncError.RecordID()] {
				seen[*syncError.RecordID()] = true
				ids = append(ids, *syncError.RecordID())
			}
		}
	}
	return ids, nil
}

func (s *memoryErrorStore) MarkResolved(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, syncError := range s.saved {
		if syncError.JobID() == jobID && !syncError.Resolved() {
			syncError.Resolve()
		}
	}
	return nil
}

func (s *memoryErrorStore) categories() []valueobject.ErrorCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	categories := make([]valueobject.ErrorCategory, 0, len(s.saved))
	for _, syncError := range s.saved {
		categories = append(categories, syncError.Category())
	}
	return categories
}

// memoryDatasourceStore is an in-memory DatasourceRepository.
type memoryDatasourceStore struct {
	mu          sync.Mutex
	datasources map[uuid.UUID]*entity.Datasource
}

func newMemoryDatasourceStore(datasources ...*entity.Datasource) *memoryDatasourceStore {
	store := &memoryDatasourceStore{datasources: make(map[uuid.UUID]*entity.Datasource)}
	for _, ds := range datasources {
		store.datasources[ds.ID()] = ds
	}
	return store
}

func (s *memoryDatasourceStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Datasource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasources[id]
	if !ok {
		return nil, entity.ErrDatasourceNotFound
	}
	return ds, nil
}

func (s *memoryDatasourceStore) FindScheduled(_ context.Context) ([]*entity.Datasource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*entity.Datasource, 0)
	for _, ds := range s.datasources {
		if ds.Enabled() && ds.CronSchedule() != "" {
			result = append(result, ds)
		}
	}
	return result, nil
}

func (s *memoryDatasourceStore) UpdateLastSyncedAt(_ context.Context, id uuid.UUID, lastSyncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasources[id]
	if !ok {
		return entity.ErrDatasourceNotFound
	}
	ds.AdvanceWatermark(lastSyncedAt)
	return nil
}

// stubEmbedder returns fixed-size vectors and can fail specific batch calls.
type stubEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool // 1-based EmbedBatch call index
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failOn[e.calls] {
		return nil, errors.New("embedding provider unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 2, 3, 4}
	}
	return vectors, nil
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// memoryVectorStore is an in-memory VectorStore.
type memoryVectorStore struct {
	mu          sync.Mutex
	points      map[string]map[string]outbound.Point
	collections map[string]bool
	requireSeen bool // unprovisioned collections report not found
	upsertErr   error
	deleted     []string
}

func newMemoryVectorStore() *memoryVectorStore {
	return &memoryVectorStore{
		points:      make(map[string]map[string]outbound.Point),
		collections: make(map[string]bool),
	}
}

func (s *memoryVectorStore) Upsert(_ context.Context, collection string, points []outbound.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if s.requireSeen && !s.collections[collection] {
		return outbound.ErrCollectionNotFound
	}
	if s.points[collection] == nil {
		s.points[collection] = make(map[string]outbound.Point)
	}
	for _, point := range points {
		s.points[collection][point.ID] = point
	}
	return nil
}

func (s *memoryVectorStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.points[collection], id)
		s.deleted = append(s.deleted, id)
	}
	return nil
}

func (s *memoryVectorStore) EnsureCollection(_ context.Context, collection string, _ int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = true
	return nil
}

func (s *memoryVectorStore) pointCount(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points[collection])
}

func (s *memoryVectorStore) pointIDs(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.points[collection]))
	for id := range s.points[collection] {
		ids = append(ids, id)
	}
	return ids
}

var (
	paginationRe = regexp.MustCompile(`LIMIT (\d+) OFFSET (\d+)`)
	keyLookupRe  = regexp.MustCompile(`\) AS src WHERE (\w+) = '([^']*)'`)
	watermarkRe  = regexp.MustCompile(`updated_at > '([^']+)'`)
)

// stubConnector serves pages of in-memory rows, understanding the count,
// pagination, watermark and key-lookup query shapes the processors build.
type stubConnector struct {
	mu        sync.Mutex
	rows      []map[string]any
	queries   []string
	failCount bool
	queryErr  error
	keyErr    map[string]error
}

func (c *stubConnector) TestConnection(_ context.Context, _ *entity.Datasource) (*outbound.ConnectionStatus, error) {
	return &outbound.ConnectionStatus{Success: true, Message: "ok", Version: "stub"}, nil
}

func (c *stubConnector) ExecuteQuery(
	_ context.Context,
	_ *entity.Datasource,
	query string,
	_ map[string]string,
) (*outbound.QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)

	if c.queryErr != nil {
		return nil, c.queryErr
	}

	if match := keyLookupRe.FindStringSubmatch(query); match != nil {
		field, key := match[1], match[2]
		if err, ok := c.keyErr[key]; ok {
			return nil, err
		}
		rows := make([]map[string]any, 0)
		for _, row := range c.rows {
			if stringifyKey(row[field]) == key {
				rows = append(rows, row)
			}
		}
		return &outbound.QueryResult{Columns: c.columns(), Rows: rows}, nil
	}

	filtered := c.rows
	if match := watermarkRe.FindStringSubmatch(query); match != nil {
		watermark, err := time.Parse("2006-01-02 15:04:05.000000", match[1])
		if err != nil {
			return nil, err
		}
		filtered = make([]map[string]any, 0)
		for _, row := range c.rows {
			if updated, ok := row["updated_at"].(time.Time); ok && updated.After(watermark) {
				filtered = append(filtered, row)
			}
		}
	}

	if strings.Contains(query, "COUNT(*)") {
		if c.failCount {
			return nil, errors.New("count query failed")
		}
		return &outbound.QueryResult{
			Columns: []string{"total"},
			Rows:    []map[string]any{{"total": int64(len(filtered))}},
		}, nil
	}

	if match := paginationRe.FindStringSubmatch(query); match != nil {
		limit, _ := strconv.Atoi(match[1])
		offset, _ := strconv.Atoi(match[2])
		if offset >= len(filtered) {
			return &outbound.QueryResult{Columns: c.columns(), Rows: nil}, nil
		}
		end := min(offset+limit, len(filtered))
		return &outbound.QueryResult{Columns: c.columns(), Rows: filtered[offset:end]}, nil
	}

	return &outbound.QueryResult{Columns: c.columns(), Rows: filtered}, nil
}

func (c *stubConnector) columns() []string {
	if len(c.rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(c.rows[0]))
	for column := range c.rows[0] {
		columns = append(columns, column)
	}
	return columns
}

func (c *stubConnector) pageQueries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]string, 0)
	for _, query := range c.queries {
		if paginationRe.MatchString(query) && !strings.Contains(query, "COUNT(*)") {
			pages = append(pages, query)
		}
	}
	return pages
}

func testDatasource(batchSize int) *entity.Datasource {
	now := time.Now()
	return entity.RestoreDatasource(
		uuid.New(), "docs", entity.DatasourceTypePostgres,
		"localhost", 5432, "app", "reader", "secret",
		"SELECT id, title, body, updated_at FROM docs ORDER BY id",
		map[string]string{"id": "doc_id", "title": "title", "body": "body"},
		"id", []string{"title", "body"}, "documents",
		batchSize, time.Millisecond, "", "hook-secret", nil, true, now, now,
	)
}

func makeRows(n int, updatedAt time.Time) []map[string]any {
	rows := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]any{
			"id":         "doc-" + strconv.Itoa(i),
			"title":      "Title " + strconv.Itoa(i),
			"body":       "Body " + strconv.Itoa(i),
			"updated_at": updatedAt,
		})
	}
	return rows
}
