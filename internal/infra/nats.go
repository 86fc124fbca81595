package infra

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

func NewNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("feast-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
