// Package realtime fans backend row changes out to websocket subscribers.
package realtime

import (
	"encoding/json"
	"time"

	"growwly/internal/apperr"
)

// Table enumerates the feeds a client may subscribe to.
type Table string

const (
	TableProgress     Table = "daily_progress"
	TableChat         Table = "chat_messages"
	TableInteractions Table = "community_interactions"
)

func ParseTable(s string) (Table, error) {
	switch Table(s) {
	case TableProgress, TableChat, TableInteractions:
		return Table(s), nil
	}
	return "", apperr.Validation("unknown table %q", s)
}

type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is one row change. Deletes carry RecordID and no Record.
type Event struct {
	Table    Table           `json:"table"`
	Kind     Kind            `json:"kind"`
	Record   json.RawMessage `json:"record,omitempty"`
	RecordID string          `json:"record_id,omitempty"`
	At       time.Time       `json:"at"`
}

// Changed builds an insert or update event carrying the row.
func Changed(table Table, kind Kind, id string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{Table: table, Kind: kind, Record: raw, RecordID: id, At: time.Now().UTC()}, nil
}

func Deleted(table Table, id string) Event {
	return Event{Table: table, Kind: KindDelete, RecordID: id, At: time.Now().UTC()}
}
