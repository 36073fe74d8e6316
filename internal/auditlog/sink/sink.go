// Package sink implements audit publisher sinks for Kafka and RabbitMQ.
// Both encode entries as JSON and key them by subject id so that a
// partitioned consumer sees every change to one DID or credential in order.
package sink

import (
	"encoding/json"
	"fmt"

	"didledger/internal/auditlog/models"
)

func encode(entry models.Entry) ([]byte, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode audit entry %d: %w", entry.Sequence, err)
	}
	return body, nil
}
