// Package events is the in-process event bus for buildledger.
//
// An embedded NATS server carries domain events between services and
// subscribers (currently the invite mailer). Payloads are JSON. Subjects:
//
//	buildledger.invite.created
//	buildledger.member.joined
//	buildledger.cost.created
//
// Publishing is fire-and-forget: losing an event degrades notifications,
// never data.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Subjects published on the bus.
const (
	SubjectInviteCreated = "buildledger.invite.created"
	SubjectMemberJoined  = "buildledger.member.joined"
	SubjectCostCreated   = "buildledger.cost.created"
)

// InviteCreated is published when an owner invites a partner. Token is the
// cleartext invite token, present only on the bus so the mailer can build
// the accept link; it is never persisted.
type InviteCreated struct {
	InviteID    string     `json:"invite_id"`
	ProjectID   string     `json:"project_id"`
	ProjectName string     `json:"project_name"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	Token       string     `json:"token"`
	InvitedBy   string     `json:"invited_by"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// MemberJoined is published when an invite is accepted.
type MemberJoined struct {
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

// CostCreated is published when a cost entry is recorded.
type CostCreated struct {
	ProjectID   string `json:"project_id"`
	CostEntryID string `json:"cost_entry_id"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	CreatedBy   string `json:"created_by"`
}

// Bus wraps an embedded NATS server and a client connection.
type Bus struct {
	server *natsserver.Server
	conn   *nats.Conn
	logger *zap.Logger
}

// Config holds event bus settings.
type Config struct {
	Port int // 0 or -1 picks a random free port
}

// NewBus starts the embedded NATS server and connects to it.
func NewBus(cfg Config, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	port := cfg.Port
	if port == 0 {
		port = -1 // random port
	}

	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready")
	}

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connect to embedded nats: %w", err)
	}

	logger.Info("event bus started", zap.String("url", srv.ClientURL()))
	return &Bus{server: srv, conn: conn, logger: logger}, nil
}

// Publish marshals the payload and publishes it on subject. Errors are
// logged, not returned: event delivery is best-effort.
func (b *Bus) Publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn("publish event", zap.String("subject", subject), zap.Error(err))
	}
}

// Subscribe registers a handler for a subject. The raw JSON payload is
// passed through; handlers unmarshal into their event type.
func (b *Bus) Subscribe(subject string, handler func(data []byte)) (*nats.Subscription, error) {
	return b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// Drain flushes in-flight messages and closes the connection, then shuts
// the embedded server down.
func (b *Bus) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
	}
	if b.server != nil {
		b.server.Shutdown()
		b.server.WaitForShutdown()
	}
}
