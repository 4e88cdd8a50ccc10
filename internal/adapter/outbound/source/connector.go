package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/port/outbound"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

// Connector executes queries against configured relational sources using
// database/sql. Connections are opened per call; sync batches are sequential
// and sources are external systems we should not hold idle pools against.
type Connector struct {
	connectTimeout time.Duration
	queryTimeout   time.Duration
}

// NewConnector creates a source connector with the given timeouts.
func NewConnector(connectTimeout, queryTimeout time.Duration) *Connector {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Minute
	}
	return &Connector{
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
	}
}

// TestConnection probes the source and reports its server version.
func (c *Connector) TestConnection(ctx context.Context, ds *entity.Datasource) (*outbound.ConnectionStatus, error) {
	db, err := c.open(ds)
	if err != nil {
		return &outbound.ConnectionStatus{Success: false, Message: err.Error()}, nil
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return &outbound.ConnectionStatus{Success: false, Message: pingErr.Error()}, nil
	}

	var version string
	if versionErr := db.QueryRowContext(ctx, versionQuery(ds.SourceType())).Scan(&version); versionErr != nil {
		return &outbound.ConnectionStatus{Success: false, Message: versionErr.Error()}, nil
	}

	return &outbound.ConnectionStatus{
		Success: true,
		Message: "connection successful",
		Version: version,
	}, nil
}

// ExecuteQuery runs the query with {{name}} params substituted and returns the
// result rows keyed by column name.
func (c *Connector) ExecuteQuery(
	ctx context.Context,
	ds *entity.Datasource,
	query string,
	params map[string]string,
) (*outbound.QueryResult, error) {
	db, err := c.open(ds)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, SubstituteParams(query, params))
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &outbound.QueryResult{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if scanErr := rows.Scan(pointers...); scanErr != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", scanErr)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("result iteration failed: %w", rows.Err())
	}

	return result, nil
}

func (c *Connector) open(ds *entity.Datasource) (*sql.DB, error) {
	driver, dsn, err := buildDSN(ds)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(c.queryTimeout)

	return db, nil
}

func buildDSN(ds *entity.Datasource) (driver string, dsn string, err error) {
	switch ds.SourceType() {
	case entity.DatasourceTypePostgres:
		dsn = fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=prefer",
			ds.Host(), ds.Port(), ds.Database(), ds.Username(), ds.Password())
		return "postgres", dsn, nil

	case entity.DatasourceTypeMySQL:
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			ds.Username(), ds.Password(), ds.Host(), ds.Port(), ds.Database())
		return "mysql", dsn, nil

	case entity.DatasourceTypeSQLServer:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(ds.Username(), ds.Password()),
			Host:     fmt.Sprintf("%s:%d", ds.Host(), ds.Port()),
			RawQuery: url.Values{"database": []string{ds.Database()}}.Encode(),
		}
		return "sqlserver", u.String(), nil

	default:
		return "", "", fmt.Errorf("unsupported source type: %s", ds.SourceType())
	}
}

func versionQuery(sourceType string) string {
	switch sourceType {
	case entity.DatasourceTypeMySQL:
		return "SELECT VERSION()"
	case entity.DatasourceTypeSQLServer:
		return "SELECT @@VERSION"
	default:
		return "SELECT version()"
	}
}

// normalizeValue converts driver-specific scan results into plain Go values so
// downstream field mapping and JSON encoding behave uniformly across vendors.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	default:
		return value
	}
}
