package databrickssql

import (
	"database/sql"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"
)

const (
	warehousePathFormat = "/sql/1.0/warehouses/%s"
	defaultPort         = 443
)

type Settings struct {
	Host        string
	Token       string
	WarehouseID string
	// Port defaults to 443.
	Port int
}

// WarehouseHTTPPath returns the HTTP path of a SQL warehouse.
func WarehouseHTTPPath(warehouseID string) string {
	return fmt.Sprintf(warehousePathFormat, warehouseID)
}

func Open(s Settings) (*sql.DB, error) {
	if s.WarehouseID == "" {
		return nil, fmt.Errorf("sql warehouse id is required")
	}
	host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(s.Host, "https://"), "http://"), "/")
	if host == "" {
		return nil, fmt.Errorf("databricks host is required")
	}

	port := s.Port
	if port == 0 {
		port = defaultPort
	}

	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(host),
		dbsql.WithPort(port),
		dbsql.WithHTTPPath(WarehouseHTTPPath(s.WarehouseID)),
		dbsql.WithAccessToken(s.Token),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create databricks sql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// QuoteIdentifier quotes a possibly dotted name, e.g. a.b.c becomes `a`.`b`.`c`.
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// QuoteString renders s as a SQL string literal.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
