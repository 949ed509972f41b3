package db

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ConnectNeo4j opens the topology graph driver.
func ConnectNeo4j(uri, username, password string) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionLifetime = 5 * time.Minute
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 10 * time.Second
		},
	)
}
