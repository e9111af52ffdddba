package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/datatypes"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/monitoring"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/pkg/logger"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Timestamp layouts nodes are known to send, tried in order.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// Entry is a single activity event as reported by a node.
type Entry struct {
	Server    string                 `json:"server"`
	Event     string                 `json:"event"`
	Metadata  map[string]interface{} `json:"metadata"`
	IP        string                 `json:"ip"`
	Timestamp string                 `json:"timestamp"`
	User      string                 `json:"user"`
}

// Batch is the payload of one activity report.
type Batch struct {
	Data []Entry `json:"data" binding:"required"`
}

// Result summarizes how a batch was processed. Entries fail
// independently; one malformed entry never blocks the rest.
type Result struct {
	ProcessedCount int      `json:"processed_count"`
	Errors         []string `json:"errors"`
}

// ServerStore resolves servers by uuid.
type ServerStore interface {
	FindByUUID(uuid string) (*models.Server, error)
}

// UserStore resolves users by uuid.
type UserStore interface {
	FindByUUID(uuid string) (*models.User, error)
}

// ActivityStore persists activity records.
type ActivityStore interface {
	Create(record *models.ActivityRecord) error
}

// Sink ingests activity batches reported by nodes.
type Sink struct {
	servers  ServerStore
	users    UserStore
	activity ActivityStore
	bus      events.Publisher
}

// NewSink creates an activity sink.
func NewSink(servers ServerStore, users UserStore, activity ActivityStore, bus events.Publisher) *Sink {
	return &Sink{
		servers:  servers,
		users:    users,
		activity: activity,
		bus:      bus,
	}
}

// Ingest processes each entry of a batch reported by the given node,
// returning how many were stored and a message for every entry that was
// rejected.
func (s *Sink) Ingest(node *models.Node, batch Batch) Result {
	result := Result{Errors: []string{}}

	for i, entry := range batch.Data {
		if err := s.ingestEntry(node, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Activity at index %d: %s", i, err.Error()))
			monitoring.ActivityEntriesRejected.Inc()
			continue
		}
		result.ProcessedCount++
		monitoring.ActivityEntriesProcessed.Inc()
	}

	if result.ProcessedCount > 0 {
		s.bus.Publish(events.Event{
			Type: events.EventActivityIngested,
			Data: map[string]interface{}{
				"node_id": node.ID,
				"count":   result.ProcessedCount,
			},
		})
	}

	return result
}

func (s *Sink) ingestEntry(node *models.Node, entry Entry) error {
	if entry.Server == "" {
		return errors.New("missing server uuid")
	}
	if entry.Event == "" {
		return errors.New("missing event name")
	}
	if !uuidPattern.MatchString(entry.Server) {
		return errors.New("invalid server uuid")
	}

	server, err := s.servers.FindByUUID(entry.Server)
	if err != nil {
		if errors.Is(err, repository.ErrServerNotFound) {
			return errors.New("server not found")
		}
		return err
	}
	if server.NodeID != node.ID {
		return errors.New("server does not belong to this node")
	}

	record := &models.ActivityRecord{
		ServerID:  server.ID,
		NodeID:    node.ID,
		Event:     entry.Event,
		IP:        entry.IP,
		Timestamp: parseTimestamp(entry.Timestamp),
	}

	if entry.User != "" {
		if !uuidPattern.MatchString(entry.User) {
			return errors.New("invalid user uuid")
		}
		record.UserID = s.resolveUser(server, entry)
	}

	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("invalid metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}

	return s.activity.Create(record)
}

// resolveUser maps an entry's user uuid to a local user id. An unknown
// user is logged and omitted rather than failing the entry; the event
// itself is still worth keeping. A user that exists but has no obvious
// tie to the server is kept with a warning, subuser grants may have
// been revoked after the event happened.
func (s *Sink) resolveUser(server *models.Server, entry Entry) *uint {
	user, err := s.users.FindByUUID(entry.User)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			logger.Error("Failed to resolve activity user", err, map[string]interface{}{
				"user_uuid": entry.User,
			})
		} else {
			logger.Warn("Activity references unknown user, storing without attribution", map[string]interface{}{
				"user_uuid": entry.User,
				"event":     entry.Event,
			})
		}
		return nil
	}

	if user.ID != server.OwnerID && !user.IsAdmin {
		logger.Warn("Activity user has no ownership of server", map[string]interface{}{
			"user_id":     user.ID,
			"server_uuid": server.UUID,
			"event":       entry.Event,
		})
	}

	return &user.ID
}

// parseTimestamp tries each accepted layout, falling back to the
// current time when none match.
func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Now()
}
